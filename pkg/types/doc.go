// Package types defines the shared data model for skillsync: update
// requests and outcomes, strategy and status constants, the filesystem
// seam, and the external collaborator interfaces (Fetcher, Lister).
//
// The package has no dependencies on other skillsync packages so that any
// component can import it without cycles.
package types
