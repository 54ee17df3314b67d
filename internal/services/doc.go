// Package services holds the shared error taxonomy and context plumbing used by
// the verification engine and its remote collaborators.
//
// The sentinel errors here classify failures by how the engine must react:
// decode and download failures are fatal for one candidate, a missing reference
// list is a reportable not-found condition, and external signal failures are
// recovered locally by degrading to visual-only scoring.
package services
