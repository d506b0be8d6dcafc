// Package reconcile orders, filters and executes live patches.
//
// A Planner pairs the expected and current organization models, validates
// the expected side, computes the live patch through the differ and either
// reports it (plan, local-plan) or executes it against the provider
// (apply).
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/autumnfound/otterdog/pkg/console"
	"github.com/autumnfound/otterdog/pkg/diff"
	"github.com/autumnfound/otterdog/pkg/logger"
	"github.com/autumnfound/otterdog/pkg/model"
	"github.com/autumnfound/otterdog/pkg/provider"
)

var reconcileLog = logger.New("reconcile:reconcile")

// DefaultTimeout bounds one full reconciliation pass.
const DefaultTimeout = 10 * time.Minute

// DiffStatus counts the outcome of one reconciliation pass.
type DiffStatus struct {
	Additions   int
	Differences int
	Extras      int
}

// Callback is invoked once per run: before execution in plan modes, after
// execution in apply mode.
type Callback func(orgID string, status DiffStatus, patches []*diff.LivePatch)

// Options tune a reconciliation run.
type Options struct {
	// DeleteExtras executes REMOVE patches instead of demoting them to
	// counted-but-ignored extras.
	DeleteExtras bool
	// KeepGoing continues executing after a provider error instead of
	// stopping at the first failure.
	KeepGoing bool
	// Callback, if set, receives the final status and patch list.
	Callback Callback
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Status     DiffStatus
	Patches    []*diff.LivePatch
	Validation *model.ValidationContext
	// Cancelled is true when the context expired before all patches were
	// scheduled; Status reflects the partial progress.
	Cancelled bool
}

// ErrValidationFailed is returned when validation errors block an apply.
var ErrValidationFailed = errors.New("validation failed")

// Planner drives reconciliation runs for one organization.
type Planner struct {
	Provider provider.Provider
	Printer  *console.Printer
	Opts     Options
}

// Plan validates the expected model, diffs it against the current one and
// reports the resulting patches without writing anything.
func (p *Planner) Plan(orgID string, expected, current *model.Organization) (*Result, error) {
	result := p.classify(orgID, expected, current)
	p.printValidation(result.Validation)
	p.printPatches(result.Patches)
	p.Printer.Printf("\n%s %d additions, %d differences, %d extras.",
		console.Bright("Planned changes:"),
		result.Status.Additions, result.Status.Differences, result.Status.Extras)

	if p.Opts.Callback != nil {
		p.Opts.Callback(orgID, result.Status, result.Patches)
	}
	return result, nil
}

// Apply plans and then executes the patches in the order the differ
// produced them. Validation errors block execution.
func (p *Planner) Apply(ctx context.Context, orgID string, expected, current *model.Organization) (*Result, error) {
	result := p.classify(orgID, expected, current)
	p.printValidation(result.Validation)

	if result.Validation.ErrorCount() > 0 {
		return result, fmt.Errorf("%w: %d errors", ErrValidationFailed, result.Validation.ErrorCount())
	}

	executed := DiffStatus{}
	var firstErr error

patches:
	for _, patch := range result.Patches {
		select {
		case <-ctx.Done():
			// stop scheduling new patches; progress so far stands.
			result.Cancelled = true
			break patches
		default:
		}

		if patch.Type == diff.PatchRemove && !p.Opts.DeleteExtras {
			executed.Extras++
			p.printPatch(patch)
			continue
		}

		p.printPatch(patch)
		if err := patch.Apply(ctx, orgID, p.Provider); err != nil {
			p.Printer.PrintError(fmt.Sprintf("failed to apply %s of %s: %v",
				patch.Type, model.Header(patch.Object()), err))
			if firstErr == nil {
				firstErr = err
			}
			if !p.Opts.KeepGoing {
				break
			}
			continue
		}

		switch patch.Type {
		case diff.PatchAdd:
			executed.Additions++
		case diff.PatchChange:
			executed.Differences++
		case diff.PatchRemove:
			executed.Extras++
		}
	}

	result.Status = executed
	p.Printer.Printf("\n%s %d added, %d changed, %d ignored.",
		console.Bright("Executed plan:"),
		executed.Additions, executed.Differences, executed.Extras)

	if p.Opts.Callback != nil {
		p.Opts.Callback(orgID, result.Status, result.Patches)
	}
	return result, firstErr
}

// classify validates and diffs without touching the provider.
func (p *Planner) classify(orgID string, expected, current *model.Organization) *Result {
	validation := expected.Validate()
	patches := diff.Diff(expected, current)

	status := DiffStatus{}
	for _, patch := range patches {
		switch patch.Type {
		case diff.PatchAdd:
			status.Additions++
		case diff.PatchChange:
			status.Differences++
		case diff.PatchRemove:
			status.Extras++
		}
	}

	reconcileLog.Printf("classified %d patches for %s: +%d ~%d -%d",
		len(patches), orgID, status.Additions, status.Differences, status.Extras)

	return &Result{Status: status, Patches: patches, Validation: validation}
}

func (p *Planner) printValidation(ctx *model.ValidationContext) {
	for _, failure := range ctx.Failures() {
		switch failure.Type {
		case model.FailureError:
			p.Printer.PrintError(failure.Message)
		case model.FailureWarning:
			p.Printer.PrintWarn(failure.Message)
		default:
			p.Printer.Println(console.FormatInfoMessage(failure.Message))
		}
	}
	if n := len(ctx.Failures()); n > 0 {
		p.Printer.Printf("%d errors, %d warnings", ctx.ErrorCount(), ctx.WarningCount())
	}
}

func (p *Planner) printPatches(patches []*diff.LivePatch) {
	for _, patch := range patches {
		p.printPatch(patch)
	}
}

func (p *Planner) printPatch(patch *diff.LivePatch) {
	header := model.Header(patch.Object())
	switch patch.Type {
	case diff.PatchAdd:
		p.Printer.Printf("add %s", header)
	case diff.PatchChange:
		p.Printer.Printf("change %s", header)
		p.Printer.LevelUp()
		for _, name := range sortedChangeKeys(patch.Changes) {
			change := patch.Changes[name]
			p.Printer.Printf("updating value for '%s' to '%s' (was '%s')",
				name, change.Expected.Format(), change.Current.Format())
		}
		p.Printer.LevelDown()
	case diff.PatchRemove:
		if p.Opts.DeleteExtras {
			p.Printer.Printf("remove %s", header)
		} else {
			p.Printer.Printf("extra (ignored) %s", header)
		}
	}
}

func sortedChangeKeys(changes map[string]model.Change) []string {
	keys := make([]string, 0, len(changes))
	for name := range changes {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
