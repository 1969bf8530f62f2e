package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

// Tiers lists the difficulties in slot order: slot 0 is Easy, 1 Medium, 2 Hard.
var Tiers = [TeamSize]ProblemDifficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d ProblemDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// CPUTimeLimit is the judge CPU budget per test case, in seconds.
func (d ProblemDifficulty) CPUTimeLimit() float64 {
	switch d {
	case DifficultyMedium:
		return 3
	case DifficultyHard:
		return 5
	}
	return 2
}

type Problem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	TestCases   []TestCase        `json:"test_cases,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type TestCase struct {
	ID             string `json:"id"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	SortOrder      int    `json:"sort_order"`
}
