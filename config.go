package activerecord

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// DatasourceConfig describes one named database connection.
type DatasourceConfig struct {
	// Driver is the database/sql driver name, e.g. "sqlite".
	Driver string `yaml:"driver"`
	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// Config is the YAML-backed datasource configuration:
//
//	datasources:
//	  default:
//	    driver: sqlite
//	    dsn: file:app.db
type Config struct {
	Datasources map[string]DatasourceConfig `yaml:"datasources"`

	// Logger receives statement logs for every opened datasource.
	// Uses slog.Default() if nil.
	Logger *slog.Logger `yaml:"-"`
}

// ParseConfig unmarshals a YAML document into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Open opens every configured datasource and registers it by name.
func (cfg Config) Open() error {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	for name, ds := range cfg.Datasources {
		drv, err := Open(ds.Driver, ds.DSN)
		if err != nil {
			return fmt.Errorf("open datasource %q: %w", name, err)
		}
		RegisterDatasource(name, drv.WithLogger(log))
		log.Debug("datasource registered", "name", name, "driver", ds.Driver)
	}
	return nil
}
