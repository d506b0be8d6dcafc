// Package config holds the otterdog configuration: the list of managed
// organizations and the credential profiles used to access them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Config is the top-level otterdog configuration, usually read from
// otterdog.yaml.
type Config struct {
	// Organizations lists the managed organizations.
	Organizations []*OrganizationConfig `yaml:"organizations"`

	// ConfigFile is the path the configuration was loaded from.
	ConfigFile string `yaml:"-"`
}

// OrganizationConfig describes one managed organization.
type OrganizationConfig struct {
	// Name is the project name used to refer to the organization.
	Name string `yaml:"name"`
	// GitHubID is the organization login on GitHub.
	GitHubID string `yaml:"github_id"`
	// ConfigRepo is the repository hosting the declarative configuration.
	ConfigRepo string `yaml:"config_repo"`
	// BaseTemplate is the jsonnet base the org configuration extends.
	BaseTemplate string `yaml:"base_template"`
	// Credentials selects the secret source for this organization.
	Credentials CredentialConfig `yaml:"credentials"`
}

// DefaultConfigRepo is used when an organization does not configure its
// own configuration repository.
const DefaultConfigRepo = ".otterdog"

// Load reads the configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading config file '%s': %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed parsing config file '%s': %w", path, err)
	}
	config.ConfigFile = path

	for _, org := range config.Organizations {
		if org.GitHubID == "" {
			return nil, fmt.Errorf("organization '%s' has no github_id configured", org.Name)
		}
		if org.ConfigRepo == "" {
			org.ConfigRepo = DefaultConfigRepo
		}
	}
	return &config, nil
}

// GetOrganizationConfig resolves an organization by project name or
// github id.
func (c *Config) GetOrganizationConfig(name string) (*OrganizationConfig, error) {
	for _, org := range c.Organizations {
		if org.Name == name || org.GitHubID == name {
			return org, nil
		}
	}
	return nil, fmt.Errorf("organization '%s' not found in configuration", name)
}

// OrganizationNames returns the configured project names.
func (c *Config) OrganizationNames() []string {
	names := make([]string, 0, len(c.Organizations))
	for _, org := range c.Organizations {
		names = append(names, org.Name)
	}
	return names
}

// OrgsDir is the directory holding per-organization configuration files,
// next to the config file.
func (c *Config) OrgsDir() string {
	return filepath.Join(filepath.Dir(c.ConfigFile), "orgs")
}

// OrgConfigFile is the on-disk configuration file of an organization.
func (c *Config) OrgConfigFile(githubID string) string {
	return filepath.Join(c.OrgsDir(), githubID+".jsonnet")
}
