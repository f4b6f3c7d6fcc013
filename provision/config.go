package provision

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ResetDomain selects which lock variant the sequencer applies after the
// key is programmed: hard locks survive until a power-on reset, soft
// locks only until a system reset. This is an externally supplied policy
// decision; it is never auto-detected from the hardware.
type ResetDomain string

const (
	ResetPowerOn ResetDomain = "power-on-reset"
	ResetSystem  ResetDomain = "system-reset"
)

// DefaultZeroizeSpinCount is the default bound for the post-lock busy
// wait. Calibrated empirically against silicon timing; raise it if the
// zeroization check reports the key register still nonzero.
const DefaultZeroizeSpinCount = 0x1000

// Config carries the tunables of one provisioning run.
type Config struct {
	// KeyValue is programmed into SNVS_LPZMKR0. Must be nonzero: the
	// register is write-1-to-set, so programming is only meaningful
	// from the all-zero power-on state, and an all-zero key would be
	// indistinguishable from an unprogrammed part.
	KeyValue uint32 `yaml:"key_value"`

	// ResetDomain picks hard vs soft locks for the read/write/select
	// lock steps.
	ResetDomain ResetDomain `yaml:"reset_domain"`

	// ZeroizeSpinCount bounds the busy wait between setting the read
	// lock and checking that the hardware zeroized the key register.
	ZeroizeSpinCount int `yaml:"zeroize_spin_count"`
}

// DefaultConfig returns the config the CLI starts from before file and
// flag overrides.
func DefaultConfig() *Config {
	return &Config{
		ResetDomain:      ResetPowerOn,
		ZeroizeSpinCount: DefaultZeroizeSpinCount,
	}
}

// LoadConfig reads a YAML config file into a default-initialized Config.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config before any register is touched.
func (c *Config) Validate() error {
	if c.KeyValue == 0 {
		return errors.New("key value must be nonzero")
	}
	if c.ResetDomain != ResetPowerOn && c.ResetDomain != ResetSystem {
		return fmt.Errorf("reset domain must be %q or %q, got %q", ResetPowerOn, ResetSystem, c.ResetDomain)
	}
	if c.ZeroizeSpinCount <= 0 {
		return errors.New("zeroize spin count must be positive")
	}
	return nil
}
