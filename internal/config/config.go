package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is read once at startup. Precedence: explicit env var > config
// file > default.
type Config struct {
	StorePath  string
	Currency   string
	LogPath    string
	LegacyPath string
}

const (
	DefaultStorePath  = "facturas.db"
	DefaultCurrency   = "EUR"
	DefaultLegacyPath = "facturas_qt.json"
)

// Load reads the key/value config file at path. A missing file is not an
// error: defaults apply. Recognized keys: store_path, currency, log_path,
// legacy_path; matching upper-case env vars override file values.
func Load(path string) (Config, error) {
	values := map[string]string{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			values, err = godotenv.Read(path)
			if err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}
	get := func(key, def string) string {
		if v := os.Getenv(strings.ToUpper(key)); v != "" {
			return v
		}
		if v := values[key]; v != "" {
			return v
		}
		return def
	}
	return Config{
		StorePath:  get("store_path", DefaultStorePath),
		Currency:   get("currency", DefaultCurrency),
		LogPath:    get("log_path", ""),
		LegacyPath: get("legacy_path", DefaultLegacyPath),
	}, nil
}
