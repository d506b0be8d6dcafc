// Package logger provides scoped debug loggers that are silent unless
// explicitly enabled through the OTTERDOG_DEBUG environment variable.
//
// Scopes follow the "package:file" convention, e.g. "provider:rest".
// OTTERDOG_DEBUG accepts a comma-separated list of patterns; "*" enables
// everything, a trailing "*" enables a prefix, anything else must match the
// scope exactly:
//
//	OTTERDOG_DEBUG=* otterdog plan
//	OTTERDOG_DEBUG=provider:*,diff:differ otterdog apply
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger writes scoped debug messages to stderr when its scope is enabled.
type Logger struct {
	scope   string
	enabled bool
}

var (
	patternsOnce sync.Once
	patterns     []string
)

func debugPatterns() []string {
	patternsOnce.Do(func() {
		raw := os.Getenv("OTTERDOG_DEBUG")
		if raw == "" {
			return
		}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	})
	return patterns
}

func scopeEnabled(scope string) bool {
	for _, p := range debugPatterns() {
		switch {
		case p == "*":
			return true
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(scope, strings.TrimSuffix(p, "*")) {
				return true
			}
		case p == scope:
			return true
		}
	}
	return false
}

// New returns a logger for the given scope.
func New(scope string) *Logger {
	return &Logger{scope: scope, enabled: scopeEnabled(scope)}
}

// Enabled reports whether messages for this scope are emitted.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Print logs the arguments in the manner of fmt.Sprint.
func (l *Logger) Print(args ...any) {
	if l.enabled {
		log.Printf("[%s] %s", l.scope, fmt.Sprint(args...))
	}
}

// Printf logs a formatted message.
func (l *Logger) Printf(format string, args ...any) {
	if l.enabled {
		log.Printf("[%s] %s", l.scope, fmt.Sprintf(format, args...))
	}
}
