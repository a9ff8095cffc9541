// Package catalog holds the fixed set of collectible cards.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"cardami/internal/models"
)

//go:embed cards.toml
var defaultCards []byte

// file is the on-disk TOML layout.
type file struct {
	Cards []models.CardDefinition `toml:"card"`
}

// Catalog is an immutable, displayOrder-sorted list of card definitions.
type Catalog struct {
	cards []models.CardDefinition
	byID  map[string]int
}

// New builds a catalog after validating defs.
func New(defs []models.CardDefinition) (*Catalog, error) {
	cards := make([]models.CardDefinition, len(defs))
	copy(cards, defs)
	if problems := Validate(cards); len(problems) > 0 {
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].DisplayOrder < cards[j].DisplayOrder
	})
	byID := make(map[string]int, len(cards))
	for i, c := range cards {
		byID[c.ID] = i
	}
	return &Catalog{cards: cards, byID: byID}, nil
}

// DecodeDefinitions reads card definitions from TOML without validating them.
func DecodeDefinitions(r io.Reader) ([]models.CardDefinition, error) {
	var f file
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return f.Cards, nil
}

// Decode reads a catalog from TOML.
func Decode(r io.Reader) (*Catalog, error) {
	defs, err := DecodeDefinitions(r)
	if err != nil {
		return nil, err
	}
	return New(defs)
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Decode(bytes.NewReader(defaultCards))
}

// Validate lists everything wrong with defs. Empty result means valid.
func Validate(defs []models.CardDefinition) []string {
	var problems []string
	seenID := make(map[string]bool, len(defs))
	seenOrder := make(map[int]string, len(defs))
	for i, c := range defs {
		if strings.TrimSpace(c.ID) == "" {
			problems = append(problems, fmt.Sprintf("card #%d: empty id", i+1))
			continue
		}
		if seenID[c.ID] {
			problems = append(problems, fmt.Sprintf("card %s: duplicate id", c.ID))
		}
		seenID[c.ID] = true
		if strings.TrimSpace(c.ImageRef) == "" {
			problems = append(problems, fmt.Sprintf("card %s: empty image", c.ID))
		}
		if other, ok := seenOrder[c.DisplayOrder]; ok {
			problems = append(problems, fmt.Sprintf("card %s: order %d already used by %s", c.ID, c.DisplayOrder, other))
		} else {
			seenOrder[c.DisplayOrder] = c.ID
		}
	}
	return problems
}

// Cards returns a copy of all definitions in display order.
func (c *Catalog) Cards() []models.CardDefinition {
	out := make([]models.CardDefinition, len(c.cards))
	copy(out, c.cards)
	return out
}

// Len is the number of cards.
func (c *Catalog) Len() int { return len(c.cards) }

// Get looks a card up by id.
func (c *Catalog) Get(id string) (models.CardDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.CardDefinition{}, false
	}
	return c.cards[i], true
}

// Has reports whether id belongs to the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Unclaimed returns cards whose id is not in claimed, in display order.
func (c *Catalog) Unclaimed(claimed map[string]struct{}) []models.CardDefinition {
	out := make([]models.CardDefinition, 0, len(c.cards))
	for _, card := range c.cards {
		if _, ok := claimed[card.ID]; !ok {
			out = append(out, card)
		}
	}
	return out
}
