package pipeline

import "time"

// RecordFailure notes a record that could not be processed this run.
type RecordFailure struct {
	ObservedID int64
	Err        error
}

// Summary reports what a run did.
type Summary struct {
	RunID string

	DirectExamined int
	FuzzyExamined  int
	AIExamined     int

	DirectMatched int
	FuzzyMatched  int
	AIMatched     int

	AICallsUsed     int
	BudgetExhausted bool

	Deferred        int
	AlreadyRecorded int
	Failures        []RecordFailure

	Started  time.Time
	Finished time.Time
}

// TotalMatched returns the number of records resolved this run.
func (s *Summary) TotalMatched() int {
	return s.DirectMatched + s.FuzzyMatched + s.AIMatched
}

// Duration returns the wall time of the run.
func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}
