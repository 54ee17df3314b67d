// Package daemon hosts the verification engine behind an HTTP API. A file
// lock guards the attempt database so two daemons cannot share one ledger.
package daemon
