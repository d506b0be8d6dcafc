package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autumnfound/otterdog/pkg/provider"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no error", err: nil, want: ExitOK},
		{name: "validation error", err: fmt.Errorf("validation failed with 2 errors"), want: ExitValidation},
		{
			name: "provider error",
			err:  fmt.Errorf("apply failed: %w", &provider.ForgeError{Status: 502, URL: "https://api.github.com"}),
			want: ExitProviderError,
		},
		{
			name: "bad credentials",
			err:  fmt.Errorf("load failed: %w", &provider.BadCredentialsError{URL: "https://api.github.com"}),
			want: ExitProviderError,
		},
		{name: "cancelled", err: context.Canceled, want: ExitCancelled},
		{name: "deadline", err: fmt.Errorf("run: %w", context.DeadlineExceeded), want: ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestStripComments(t *testing.T) {
	input := "# a comment\n{\n  // another comment\n  settings: {},\n}\n"
	assert.Equal(t, "{\n  settings: {},\n}\n", stripComments(input))
}

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCmd("test")

	expected := []string{"fetch", "import", "plan", "local-plan", "apply", "canonical-diff", "serve"}
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, names[name], "missing command %s", name)
	}
}
