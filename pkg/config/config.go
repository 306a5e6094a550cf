// Copyright 2025 Constellation 2.0
//
// Package config loads the kernel's runtime configuration from a YAML
// file, grouped by concern the way the teacher's own config loader is.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the kernel's full runtime configuration.
type Config struct {
	RepoRoot       string            `yaml:"repo_root"`
	TruthRoot      string            `yaml:"truth_root"`
	SchemaRoot     string            `yaml:"schema_root"`
	ProducerRepo   string            `yaml:"producer_repo"`
	ProducerGitSHA string            `yaml:"producer_git_sha"`
	ProducerModule string            `yaml:"producer_module"`
	EngineCaps     map[string]string `yaml:"engine_caps"`
	RiskBudgetPath string            `yaml:"risk_budget_path"`
	LogLevel       string            `yaml:"log_level"`
	MetricsAddr    string            `yaml:"metrics_addr"`
	ReadIndexDSN   string            `yaml:"read_index_dsn"`
	FingerprintDB  string            `yaml:"fingerprint_db_path"`
	AnchorEthereum AnchorEthereum    `yaml:"anchor_ethereum"`
	AnchorCometBFT AnchorCometBFT    `yaml:"anchor_cometbft"`
}

// AnchorEthereum configures the optional ethereum AnchorAdapter.
type AnchorEthereum struct {
	Enabled  bool   `yaml:"enabled"`
	RPCURL   string `yaml:"rpc_url"`
	ChainID  int64  `yaml:"chain_id"`
	Contract string `yaml:"contract_address"`
}

// AnchorCometBFT configures the optional cometbft AnchorAdapter.
type AnchorCometBFT struct {
	Enabled bool   `yaml:"enabled"`
	RPCURL  string `yaml:"rpc_url"`
	ChainID string `yaml:"chain_id"`
}

// Producer returns the {repo, git_sha, module} map every artifact embeds.
func (c *Config) Producer() map[string]string {
	return map[string]string{
		"repo":    c.ProducerRepo,
		"git_sha": c.ProducerGitSHA,
		"module":  c.ProducerModule,
	}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	missing := []string{}
	if c.RepoRoot == "" {
		missing = append(missing, "repo_root")
	}
	if c.TruthRoot == "" {
		missing = append(missing, "truth_root")
	}
	if c.SchemaRoot == "" {
		missing = append(missing, "schema_root")
	}
	if c.ProducerGitSHA == "" {
		missing = append(missing, "producer_git_sha")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	return nil
}
