package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a ticload run.
type Config struct {
	DSN        string
	LogFormat  string // "text" or "json"
	PayersPath string
	CodesPath  string

	Payer     string // single-payer selection for ingest
	MaxFiles  int
	MaxSizeMB int64
	BatchSize int
}

// PayerConfig describes one payer's published index.
type PayerConfig struct {
	Name            string   `yaml:"name"`
	IndexURL        string   `yaml:"index_url"`
	Enabled         bool     `yaml:"enabled"`
	Notes           string   `yaml:"notes"`
	AdditionalFiles []string `yaml:"additional_files"`
	// LocalDialect marks payers whose provider references are encoded
	// floats rather than plain integer group ids.
	LocalDialect bool `yaml:"local_dialect"`
}

// GeographyConfig scopes extraction to target states and ZIP prefixes.
type GeographyConfig struct {
	States      []string `yaml:"states"`
	ZipPrefixes []string `yaml:"zip_prefixes"`
}

// PayersFile is the on-disk payers.yaml structure.
type PayersFile struct {
	Payers    []PayerConfig   `yaml:"payers"`
	Geography GeographyConfig `yaml:"geography"`
}

// codesFile is the on-disk codes.yaml structure.
type codesFile struct {
	BillingCodes []string `yaml:"billing_codes"`
}

// LoadPayers reads and validates payers.yaml.
func LoadPayers(path string) (*PayersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payers config: %w", err)
	}
	var pf PayersFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse payers config: %w", err)
	}
	if len(pf.Geography.States) == 0 {
		pf.Geography.States = []string{"MN"}
	}
	return &pf, nil
}

// Enabled returns the payers with a usable index URL.
func (pf *PayersFile) Enabled() []PayerConfig {
	var out []PayerConfig
	for _, p := range pf.Payers {
		if p.Enabled && p.IndexURL != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the payer config with the given name.
func (pf *PayersFile) Lookup(name string) (PayerConfig, bool) {
	for _, p := range pf.Payers {
		if p.Name == name {
			return p, true
		}
	}
	return PayerConfig{}, false
}

// LoadCodes reads codes.yaml and returns the target billing code set.
func LoadCodes(path string) (map[string]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codes config: %w", err)
	}
	var cf codesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse codes config: %w", err)
	}
	if len(cf.BillingCodes) == 0 {
		return nil, fmt.Errorf("codes config %s lists no billing codes", path)
	}
	codes := make(map[string]struct{}, len(cf.BillingCodes))
	for _, c := range cf.BillingCodes {
		codes[c] = struct{}{}
	}
	return codes, nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
