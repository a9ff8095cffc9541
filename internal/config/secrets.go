package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir is the Docker Secrets mount point. Overridable for tests and local runs.
var SecretsDir = "/run/secrets"

func init() {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		SecretsDir = dir
	}
}

// ReadSecret reads a Docker secret file and trims it. An empty file is an error.
func ReadSecret(secretName string) (string, error) {
	filePath := filepath.Join(SecretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
