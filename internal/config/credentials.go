package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fboucher/terminal-tools/internal/platform"
)

const (
	apiKeyEnvVar   = "VAANI_API_KEY"
	apiKeyFileName = "api_key"
)

// LoadAPIKey returns the Vaani API key, preferring the VAANI_API_KEY
// environment variable over the key file in the config directory.
func LoadAPIKey(logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if key := strings.TrimSpace(os.Getenv(apiKeyEnvVar)); key != "" {
		return key, nil
	}

	path, err := APIKeyPath()
	if err != nil {
		return "", err
	}

	return loadAPIKeyFile(path, logger)
}

// APIKeyPath returns the location of the stored key file.
func APIKeyPath() (string, error) {
	dir, err := platform.ResolveConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, apiKeyFileName), nil
}

func loadAPIKeyFile(path string, logger *zap.Logger) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no API key found; set %s or run `vaani auth` to store one at %s", apiKeyEnvVar, path)
		}
		return "", fmt.Errorf("read api key file: %w", err)
	}

	// The key file should only be readable by its owner. Warn but keep going,
	// the key itself still works.
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		logger.Warn("api key file is accessible to other users; tighten with chmod 600",
			zap.String("path", path),
			zap.String("mode", fmt.Sprintf("%04o", mode)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read api key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("api key file %s is empty; run `vaani auth` to store a key", path)
	}

	return key, nil
}

// SaveAPIKey stores the key in the config directory with owner-only
// permissions and returns the file path.
func SaveAPIKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("api key is empty")
	}

	dir, err := platform.ResolveConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, apiKeyFileName)
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write api key file: %w", err)
	}

	return path, nil
}

// MaskKey renders a key safe for terminal output, keeping only the first and
// last few characters.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
