package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "otterdog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
organizations:
  - name: acme-project
    github_id: acme
    base_template: otterdog-defaults/org.libsonnet
    credentials:
      provider: env
      item: ACME
  - name: other
    github_id: other-org
    config_repo: config
`)

	config, err := Load(path)
	require.NoError(t, err)
	require.Len(t, config.Organizations, 2)

	org, err := config.GetOrganizationConfig("acme-project")
	require.NoError(t, err)
	assert.Equal(t, "acme", org.GitHubID)
	assert.Equal(t, DefaultConfigRepo, org.ConfigRepo, "config repo defaults")

	other, err := config.GetOrganizationConfig("other-org")
	require.NoError(t, err)
	assert.Equal(t, "config", other.ConfigRepo)

	_, err = config.GetOrganizationConfig("unknown")
	assert.Error(t, err)

	assert.Equal(t, []string{"acme-project", "other"}, config.OrganizationNames())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "orgs", "acme.jsonnet"), config.OrgConfigFile("acme"))
}

func TestLoadConfigRequiresGitHubID(t *testing.T) {
	path := writeConfig(t, `
organizations:
  - name: broken
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github_id")
}

func TestResolveEnvCredentials(t *testing.T) {
	t.Setenv("ACME_API_TOKEN", "ghp_token")
	t.Setenv("ACME_USERNAME", "octocat")

	creds, err := resolveEnv("ACME")
	require.NoError(t, err)
	assert.Equal(t, "ghp_token", creds.APIToken)
	assert.Equal(t, "octocat", creds.Username)
}

func TestResolveEnvCredentialsMissingToken(t *testing.T) {
	_, err := resolveEnv("DOES_NOT_EXIST")
	require.Error(t, err)
}

func TestTOTP(t *testing.T) {
	// RFC 6238 test seed, reference value at t=59s.
	seed := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	code, err := totpAt(seed, time.Unix(59, 0))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)

	code, err = totpAt(seed, time.Unix(1111111109, 0))
	require.NoError(t, err)
	assert.Equal(t, "081804", code)
}

func TestTOTPInvalidSeed(t *testing.T) {
	_, err := totpAt("not base32!!", time.Unix(0, 0))
	assert.Error(t, err)
}
