package main

import (
	"errors"
	"os"

	skerrors "github.com/arthur-debert/skillsync/pkg/errors"
)

// Version information set by the build process
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 0 all good, 1 at least one update failed, 2 fatal
// precondition (missing input, missing collaborators).
const (
	exitOK            = 0
	exitUpdatesFailed = 1
	exitPrecondition  = 2
)

// errUpdatesFailed signals that the run completed but at least one request
// ended FAILED or FAILED_ROLLBACK.
var errUpdatesFailed = errors.New("one or more updates failed")

func main() {
	if err := Execute(); err != nil {
		switch {
		case errors.Is(err, errUpdatesFailed):
			os.Exit(exitUpdatesFailed)
		case skerrors.IsPrecondition(err):
			os.Exit(exitPrecondition)
		default:
			os.Exit(exitUpdatesFailed)
		}
	}
	os.Exit(exitOK)
}
