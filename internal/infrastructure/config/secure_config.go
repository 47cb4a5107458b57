package config

import (
	"fmt"
	"os"
	"strings"

	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// secretField maps a config value to the file that may hold it
type secretField struct {
	name  string
	value *string
	file  string
}

// resolveSecrets fills secret values from their *_file counterparts.
// An explicit value always wins over the file.
func resolveSecrets(cfg *Config) error {
	fields := []secretField{
		{name: "storage.encryption_key", value: &cfg.Storage.EncryptionKey, file: cfg.Storage.EncryptionKeyFile},
	}

	for _, f := range fields {
		if *f.value != "" || f.file == "" {
			continue
		}
		raw, err := os.ReadFile(f.file)
		if err != nil {
			return apperrors.NewConfigurationError(fmt.Sprintf("%s_file %q cannot be read", f.name, f.file)).WithCause(err)
		}
		secret := strings.TrimSpace(string(raw))
		if secret == "" {
			return apperrors.NewConfigurationError(fmt.Sprintf("%s_file %q is empty", f.name, f.file))
		}
		*f.value = secret
	}
	return nil
}
