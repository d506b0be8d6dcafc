// Package loader builds organization models from their two sources: the
// declarative configuration evaluated by jsonnet, and the live state
// reported by the provider.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-jsonnet"

	"github.com/autumnfound/otterdog/pkg/logger"
	"github.com/autumnfound/otterdog/pkg/model"
)

var declaredLog = logger.New("loader:declared")

// ConfigLoadError wraps failures of the declarative evaluation or the
// schema adaptation; it is fatal to the run.
type ConfigLoadError struct {
	Path  string
	Cause error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to load configuration '%s': %v", e.Path, e.Cause)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Cause
}

// LoadFromDeclaredFile evaluates a jsonnet configuration file into the
// organization model.
func LoadFromDeclaredFile(githubID, path string) (*model.Organization, error) {
	declaredLog.Printf("loading declared configuration from '%s'", path)

	vm := jsonnet.MakeVM()
	vm.Importer(&jsonnet.FileImporter{JPaths: []string{filepath.Dir(path)}})

	evaluated, err := vm.EvaluateFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Cause: err}
	}
	return LoadFromDeclaredString(githubID, path, evaluated)
}

// LoadFromDeclaredSource evaluates in-memory jsonnet source (e.g. fetched
// from a configuration repository) into the organization model.
func LoadFromDeclaredSource(githubID, name, source string) (*model.Organization, error) {
	declaredLog.Printf("loading declared configuration from snippet '%s'", name)

	vm := jsonnet.MakeVM()
	evaluated, err := vm.EvaluateAnonymousSnippet(name, source)
	if err != nil {
		return nil, &ConfigLoadError{Path: name, Cause: err}
	}
	return LoadFromDeclaredString(githubID, name, evaluated)
}

// LoadFromDeclaredString adapts already-evaluated configuration data into
// the organization model.
func LoadFromDeclaredString(githubID, path, evaluated string) (*model.Organization, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(evaluated), &data); err != nil {
		return nil, &ConfigLoadError{Path: path, Cause: err}
	}

	org, err := model.NewOrganizationFromDeclared(githubID, data)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Cause: err}
	}
	return org, nil
}

// Render serializes an organization back to its declarative form. The
// output is plain JSON, which is valid jsonnet; round-tripping through
// LoadFromDeclaredString restores the same model up to unset
// normalization.
func Render(org *model.Organization) (string, error) {
	data, err := json.MarshalIndent(org.ToDeclared(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// WriteSnapshot renders an organization into its on-disk configuration
// file, creating the parent directory if needed.
func WriteSnapshot(org *model.Organization, path string) error {
	rendered, err := Render(org)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(rendered), 0o644)
}
