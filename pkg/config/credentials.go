package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/autumnfound/otterdog/pkg/logger"
)

var credentialsLog = logger.New("config:credentials")

// CredentialConfig selects the secret source of an organization.
type CredentialConfig struct {
	// Provider is one of "bitwarden", "pass" or "env".
	Provider string `yaml:"provider"`
	// Item addresses the secret within the provider: the bitwarden item
	// id, the pass folder, or the environment variable prefix.
	Item string `yaml:"item"`
}

// Credentials are the resolved secrets used to access an organization.
type Credentials struct {
	Username            string
	Password            string
	TOTPSeed            string
	APIToken            string
	GitHubAppID         string
	GitHubAppPrivateKey string
}

// TOTP computes a fresh one-time password from the credential's seed.
func (c *Credentials) TOTP() (string, error) {
	if c.TOTPSeed == "" {
		return "", fmt.Errorf("no totp seed configured")
	}
	return totpNow(c.TOTPSeed)
}

// GetCredentials resolves the credentials of an organization from its
// configured secret source.
func (c *Config) GetCredentials(org *OrganizationConfig) (*Credentials, error) {
	switch org.Credentials.Provider {
	case "bitwarden":
		return resolveBitwarden(org.Credentials.Item)
	case "pass":
		return resolvePass(org.Credentials.Item)
	case "env", "":
		return resolveEnv(org.Credentials.Item)
	default:
		return nil, fmt.Errorf("unsupported credential provider '%s'", org.Credentials.Provider)
	}
}

// resolveEnv reads credentials from environment variables using the item
// as prefix, e.g. prefix "ACME" reads ACME_API_TOKEN.
func resolveEnv(prefix string) (*Credentials, error) {
	if prefix == "" {
		prefix = "OTTERDOG"
	}
	credentialsLog.Printf("resolving credentials from environment with prefix '%s'", prefix)

	creds := &Credentials{
		Username:            os.Getenv(prefix + "_USERNAME"),
		Password:            os.Getenv(prefix + "_PASSWORD"),
		TOTPSeed:            os.Getenv(prefix + "_TOTP_SEED"),
		APIToken:            os.Getenv(prefix + "_API_TOKEN"),
		GitHubAppID:         os.Getenv(prefix + "_GITHUB_APP_ID"),
		GitHubAppPrivateKey: os.Getenv(prefix + "_GITHUB_APP_PRIVATE_KEY"),
	}
	if creds.APIToken == "" {
		return nil, fmt.Errorf("no api token found in environment variable '%s_API_TOKEN'", prefix)
	}
	return creds, nil
}

// resolvePass reads credentials from the pass password store, one entry
// per field below the configured folder.
func resolvePass(folder string) (*Credentials, error) {
	credentialsLog.Printf("resolving credentials from pass folder '%s'", folder)

	read := func(field string) (string, error) {
		out, err := exec.Command("pass", "show", folder+"/"+field).Output()
		if err != nil {
			return "", nil
		}
		return strings.TrimSpace(string(out)), nil
	}

	creds := &Credentials{}
	var err error
	if creds.Username, err = read("username"); err != nil {
		return nil, err
	}
	if creds.Password, err = read("password"); err != nil {
		return nil, err
	}
	if creds.TOTPSeed, err = read("2fa_seed"); err != nil {
		return nil, err
	}
	if creds.APIToken, err = read("api_token"); err != nil {
		return nil, err
	}
	if creds.GitHubAppID, err = read("github_app_id"); err != nil {
		return nil, err
	}
	if creds.GitHubAppPrivateKey, err = read("github_app_private_key"); err != nil {
		return nil, err
	}

	if creds.APIToken == "" {
		return nil, fmt.Errorf("no api token found in pass folder '%s'", folder)
	}
	return creds, nil
}

// resolveBitwarden reads credentials from a bitwarden item via the bw cli.
func resolveBitwarden(itemID string) (*Credentials, error) {
	credentialsLog.Printf("resolving credentials from bitwarden item '%s'", itemID)

	out, err := exec.Command("bw", "get", "item", itemID).Output()
	if err != nil {
		return nil, fmt.Errorf("failed retrieving bitwarden item '%s': %w", itemID, err)
	}

	var item struct {
		Login struct {
			Username string `json:"username"`
			Password string `json:"password"`
			TOTP     string `json:"totp"`
		} `json:"login"`
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(out, &item); err != nil {
		return nil, fmt.Errorf("failed parsing bitwarden item '%s': %w", itemID, err)
	}

	creds := &Credentials{
		Username: item.Login.Username,
		Password: item.Login.Password,
		TOTPSeed: item.Login.TOTP,
	}
	for _, field := range item.Fields {
		switch field.Name {
		case "api_token_admin":
			creds.APIToken = field.Value
		case "github_app_id":
			creds.GitHubAppID = field.Value
		case "github_app_private_key":
			creds.GitHubAppPrivateKey = field.Value
		}
	}

	if creds.APIToken == "" {
		return nil, fmt.Errorf("no api token found in bitwarden item '%s'", itemID)
	}
	return creds, nil
}
