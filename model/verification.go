package model

import "time"

// VerificationAttempt tracks the non-settling outcomes of gateway checks for
// one external reference: how many times the reference has been verified and
// what the gateway said last. Settled references live in the transaction
// log, not here.
type VerificationAttempt struct {
	ID            int64     `json:"-"`
	Reference     string    `json:"reference"`
	Attempts      int       `json:"attempts"`
	LastStatus    string    `json:"last_status"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}
