package models

// Identity is the authenticated user handle produced by the identity provider.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}
