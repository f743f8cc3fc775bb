package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSecretsDir is where Docker mounts secrets.
const DefaultSecretsDir = "/run/secrets"

// ReadSecret reads a trimmed secret from dir/name. An empty dir means
// DefaultSecretsDir. Empty files are an error.
func ReadSecret(dir, name string) (string, error) {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	filePath := filepath.Join(dir, name)
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
