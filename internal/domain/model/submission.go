package model

import "time"

// Submission is an immutable ledger entry for one judged run that passed at
// least one test case.
type Submission struct {
	ID              string    `json:"id"`
	TeamID          string    `json:"team_id"`
	MemberHandle    string    `json:"member_handle"`
	ProblemID       string    `json:"problem_id"`
	Code            string    `json:"code"`
	Language        string    `json:"language"`
	Passed          bool      `json:"passed"` // every test case passed
	PassedTestCases int       `json:"passed_test_cases"`
	TotalTestCases  int       `json:"total_test_cases"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// TestCaseResult is the outcome of one test case in a run. It is returned to
// the caller, never stored.
type TestCaseResult struct {
	Input           string  `json:"input"`
	ExpectedOutput  string  `json:"expected_output"`
	ActualOutput    string  `json:"actual_output"`
	Passed          bool    `json:"passed"`
	Status          string  `json:"status"`
	ExecutionTimeMs *int    `json:"execution_time_ms,omitempty"`
	MemoryKb        *int    `json:"memory_kb,omitempty"`
	Error           *string `json:"error,omitempty"`
}
