package domain

import "time"

// SubmissionID identifies a Submission row.
type SubmissionID int64

// Submission is one reviewer's entry into an exchange.
type Submission struct {
	ID          SubmissionID
	ExchangeID  ExchangeID
	Link        string // normalized per the exchange's JamType
	Submitter   uint64
	SubmittedAt time.Time // UTC
}

// NewSubmission is the input shape for SubmissionRepository.Upsert.
type NewSubmission struct {
	ExchangeID ExchangeID
	Link       string
	Submitter  uint64
}
