package entity

import (
	"time"
)

// PassScore is the score both judge dimensions must reach for a pass.
const PassScore = 1

type Outcome string

const (
	OutcomePassed     Outcome = "passed"
	OutcomeFailed     Outcome = "failed"
	OutcomeUnanswered Outcome = "unanswered"
	OutcomeJudgeError Outcome = "judge_error"
)

// Passed reports whether both scores meet PassScore.
func Passed(hallucination, helpfulness int) bool {
	return hallucination == PassScore && helpfulness == PassScore
}

// Verdict is the outcome of the two judge calls for one answer.
// A nil score means the corresponding call failed.
type Verdict struct {
	Hallucination    *int
	Helpfulness      *int
	HallucinationErr error
	HelpfulnessErr   error
}

func (v Verdict) Complete() bool {
	return v.Hallucination != nil && v.Helpfulness != nil
}

func (v Verdict) Passed() bool {
	return v.Complete() && Passed(*v.Hallucination, *v.Helpfulness)
}

func (v Verdict) Outcome() Outcome {
	switch {
	case !v.Complete():
		return OutcomeJudgeError
	case v.Passed():
		return OutcomePassed
	default:
		return OutcomeFailed
	}
}

// TestResult is one exercised QA pair. Rows are append-only.
type TestResult struct {
	ID                 string     `json:"test_id"`
	ProjectID          string     `json:"project_id"`
	OwnerID            string     `json:"owner_id"`
	Question           string     `json:"question"`
	ReferenceAnswer    string     `json:"reference_answer"`
	TargetAnswer       string     `json:"target_answer"`
	HallucinationScore *int       `json:"hallucination_score"`
	HelpfulnessScore   *int       `json:"helpfulness_score"`
	Passed             bool       `json:"passed"`
	Outcome            Outcome    `json:"outcome"`
	Difficulty         Difficulty `json:"difficulty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type RunState string

const (
	RunInitializing RunState = "INITIALIZING"
	RunPlanning     RunState = "PLANNING"
	RunInvoking     RunState = "INVOKING"
	RunJudging      RunState = "JUDGING"
	RunComplete     RunState = "COMPLETE"
	RunFailed       RunState = "FAILED"
)

// RunReport summarizes a single Test Runner execution.
type RunReport struct {
	ProjectID  string    `json:"project_id"`
	State      RunState  `json:"state"`
	Pairs      int       `json:"pairs"`
	Results    int       `json:"results"`
	Passed     int       `json:"passed"`
	Skipped    int       `json:"skipped"`
	JudgeFails int       `json:"judge_errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CycleReport summarizes one scan and dispatch pass.
type CycleReport struct {
	StartedAt  time.Time `json:"started_at"`
	Scanned    int       `json:"scanned"`
	Due        []string  `json:"due"`
	Dispatched []string  `json:"dispatched"`
	Skipped    []string  `json:"skipped"`
}
