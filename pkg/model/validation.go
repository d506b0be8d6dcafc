package model

import "fmt"

// FailureType classifies validation failures.
type FailureType int

const (
	// FailureInfo is purely informational.
	FailureInfo FailureType = iota
	// FailureWarning is surfaced but does not block applying changes.
	FailureWarning
	// FailureError blocks applying changes.
	FailureError
)

func (t FailureType) String() string {
	switch t {
	case FailureError:
		return "ERROR"
	case FailureWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Failure is a single validation finding.
type Failure struct {
	Type    FailureType
	Message string
}

// ValidationContext accumulates failures across a validation pass. The pass
// never fails hard on policy issues; callers inspect the counters.
type ValidationContext struct {
	// Root is the organization being validated, available to rules that
	// need cross-entity state (e.g. repo workflow settings vs org policy).
	Root *Organization

	failures []Failure
}

// NewValidationContext returns a context rooted at the given organization.
func NewValidationContext(root *Organization) *ValidationContext {
	return &ValidationContext{Root: root}
}

// AddFailure records a finding.
func (c *ValidationContext) AddFailure(t FailureType, format string, args ...any) {
	c.failures = append(c.failures, Failure{Type: t, Message: fmt.Sprintf(format, args...)})
}

// Failures returns all recorded findings in order.
func (c *ValidationContext) Failures() []Failure {
	return c.failures
}

// ErrorCount returns the number of blocking failures.
func (c *ValidationContext) ErrorCount() int {
	return c.count(FailureError)
}

// WarningCount returns the number of warnings.
func (c *ValidationContext) WarningCount() int {
	return c.count(FailureWarning)
}

func (c *ValidationContext) count(t FailureType) int {
	n := 0
	for _, f := range c.failures {
		if f.Type == t {
			n++
		}
	}
	return n
}
