package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsUnset(t *testing.T) {
	var v Value
	assert.True(t, v.IsUnset())
	assert.False(t, v.IsSet())
	assert.False(t, v.IsNull())
}

func TestFromAny(t *testing.T) {
	assert.True(t, FromAny(nil).IsNull())
	assert.True(t, FromAny("x").IsSet())
	assert.Equal(t, "x", FromAny("x").String())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Value
		unordered bool
		want      bool
	}{
		{
			name: "both unset",
			a:    Unset,
			b:    Unset,
			want: true,
		},
		{
			name: "unset vs null",
			a:    Unset,
			b:    Null(),
			want: false,
		},
		{
			name: "null vs set",
			a:    Null(),
			b:    Set("x"),
			want: false,
		},
		{
			name: "equal strings",
			a:    Set("main"),
			b:    Set("main"),
			want: true,
		},
		{
			name: "int vs float from json",
			a:    Set(12),
			b:    Set(float64(12)),
			want: true,
		},
		{
			name: "list order matters by default",
			a:    Set([]string{"push", "pull_request"}),
			b:    Set([]string{"pull_request", "push"}),
			want: false,
		},
		{
			name:      "unordered list",
			a:         Set([]string{"push", "pull_request"}),
			b:         Set([]string{"pull_request", "push"}),
			unordered: true,
			want:      true,
		},
		{
			name:      "unordered list with duplicates",
			a:         Set([]string{"push", "push"}),
			b:         Set([]string{"push", "pull_request"}),
			unordered: true,
			want:      false,
		},
		{
			name:      "unordered mixed representations",
			a:         Set([]string{"push"}),
			b:         Set([]any{"push"}),
			unordered: true,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b, tt.unordered))
		})
	}
}

func TestBoolAcceptsStringForms(t *testing.T) {
	assert.True(t, Set(true).Bool())
	assert.True(t, Set("True").Bool())
	assert.True(t, Set("true").Bool())
	assert.False(t, Set("False").Bool())
	assert.False(t, Null().Bool())
	assert.False(t, Unset.Bool())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "null", Null().Format())
	assert.Equal(t, "<unset>", Unset.Format())
	assert.Equal(t, "true", Set(true).Format())
	assert.Equal(t, "main", Set("main").Format())
}
