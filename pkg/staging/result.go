package staging

import "github.com/arthur-debert/skillsync/pkg/types"

// Result is the product of staging one request: either a terminal outcome
// (skip, failure, dry-run) or a pending staged artifact awaiting apply.
// Index is the request's position among the selected requests, used to
// restore input order after parallel staging.
type Result struct {
	Index    int
	Request  types.UpdateRequest
	Commands []string

	// Outcome is non-nil for terminal results
	Outcome *types.UpdateOutcome

	// TempRoot is the ephemeral directory owning the staged tree; the
	// consumer must delete it on every path. StagedPath is the staged
	// skill root inside it.
	TempRoot   string
	StagedPath string
}

// Pending reports whether the result carries a staged artifact that still
// has to be applied.
func (r Result) Pending() bool {
	return r.Outcome == nil
}
