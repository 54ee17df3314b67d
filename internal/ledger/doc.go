// Package ledger persists verification attempts in SQLite. The daily attempt
// quota is enforced by counting rows per patient, medicine, and calendar day.
package ledger
