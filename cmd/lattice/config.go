// Config loading for the lattice CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tabletree/lattice/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDBPath    = "db_path"
	cfgKeyBatchSize = "batch_size"

	defaultDBPath = "lattice.db"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Lattice CLI configuration

# Database file path (overridable by --db flag)
db_path: lattice.db

# Rows per migration transaction
# batch_size: 1000
`

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() string {
	if configDir != "" {
		return configDir
	}
	if v := os.Getenv("LATTICE_CONFIG_DIR"); v != "" {
		return v
	}
	return ".lattice"
}

// loadConfig reads config.yaml from the resolved config directory, creating
// the directory and a default file on first run. Flags override file
// values.
func loadConfig() (types.Config, error) {
	dir := resolveConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBPath, defaultDBPath)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := types.Config{
		DBPath:    v.GetString(cfgKeyDBPath),
		BatchSize: v.GetInt(cfgKeyBatchSize),
	}
	if dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(dir string) error {
	path := filepath.Join(dir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
