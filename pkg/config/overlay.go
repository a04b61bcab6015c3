package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// overlay mirrors Config's fields as optional pointers: a zero-value
// overlay field means "not set in the file," so environment variables
// (read first, in Load) are never silently clobbered by an absent key.
type overlay struct {
	ElderCount  *uint   `yaml:"elder_count"`
	QuorumM     *uint   `yaml:"quorum_m"`
	KeystoreDir *string `yaml:"keystore_dir"`
	DevSeed     *string `yaml:"dev_seed"`
	StoreHost   *string `yaml:"store_host"`
	StorePort   *int    `yaml:"store_port"`
}

// ApplyOverlayFile reads a YAML file at path, if present, and fills in any
// field the environment left at its Load default. A missing file is not an
// error: the overlay is optional local-development convenience, not a
// required config source. Environment variables always win over the file.
func (c *Config) ApplyOverlayFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return err
	}

	if _, set := os.LookupEnv("ELDER_COUNT"); !set && o.ElderCount != nil {
		c.ElderCount = *o.ElderCount
	}
	if _, set := os.LookupEnv("QUORUM_M"); !set && o.QuorumM != nil {
		c.QuorumM = *o.QuorumM
	}
	if _, set := os.LookupEnv("KEYSTORE_DIR"); !set && o.KeystoreDir != nil {
		c.KeystoreDir = *o.KeystoreDir
	}
	if _, set := os.LookupEnv("DEV_SEED"); !set && o.DevSeed != nil {
		c.DevSeed = *o.DevSeed
	}
	if _, set := os.LookupEnv("STORE_HOST"); !set && o.StoreHost != nil {
		c.StoreHost = *o.StoreHost
	}
	if _, set := os.LookupEnv("STORE_PORT"); !set && o.StorePort != nil {
		c.StorePort = *o.StorePort
	}
	return nil
}
