// Package secrets resolves credentials from configuration values. A value
// may reference environment variables as ${VAR} or ${VAR:-fallback}, or the
// credential may be read from a mounted file such as a Docker secret.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
)

const (
	maxFileSize = 64 * 1024

	// group and other permission bits
	looseModeBits = 0o077
)

func getLogger() logger.Logger {
	return logger.Global().Module("secrets")
}

// Expand substitutes ${VAR} and ${VAR:-fallback} references. Values without
// a ${ marker are returned unchanged, so a literal $ in a password survives.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile returns the contents of a secret file without trailing newlines.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fileError(fmt.Errorf("secret file path is empty"), path)
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(fmt.Errorf("not a regular file"), clean)
	}
	if info.Size() > maxFileSize {
		return "", fileError(fmt.Errorf("secret file exceeds %d bytes", maxFileSize), clean)
	}
	if perm := info.Mode().Perm(); perm&looseModeBits != 0 {
		getLogger().Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(fmt.Errorf("secret file is empty"), clean)
	}
	return secret, nil
}

// Resolve returns the credential from filePath when set, otherwise the
// expanded value.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return Expand(value)
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
