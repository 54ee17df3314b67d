// Package verify orchestrates a verification run: attempt quota, reference
// candidate selection, signal collection, score fusion, and the match gates.
// External signal failures degrade the run to the visual-only path; only
// missing references surface as an error.
package verify
