// Package filesystem provides the production implementation of types.FS,
// backed by the OS filesystem. Tests construct the same implementation and
// point components at a temp-dir root instead of faking the interface.
package filesystem
