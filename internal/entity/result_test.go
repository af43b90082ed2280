package entity

import "testing"

func intPtr(v int) *int { return &v }

func TestPassed(t *testing.T) {
	tests := []struct {
		hallucination int
		helpfulness   int
		want          bool
	}{
		{0, 0, false},
		{0, 1, false},
		{1, 0, false},
		{1, 1, true},
	}

	for _, tt := range tests {
		if got := Passed(tt.hallucination, tt.helpfulness); got != tt.want {
			t.Errorf("Passed(%d, %d) = %v, want %v", tt.hallucination, tt.helpfulness, got, tt.want)
		}
	}
}

func TestVerdictOutcome(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		want    Outcome
	}{
		{"both pass", Verdict{Hallucination: intPtr(1), Helpfulness: intPtr(1)}, OutcomePassed},
		{"one zero", Verdict{Hallucination: intPtr(1), Helpfulness: intPtr(0)}, OutcomeFailed},
		{"missing score", Verdict{Hallucination: intPtr(1)}, OutcomeJudgeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.verdict.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFinalState(t *testing.T) {
	tests := []struct {
		total, processed int
		want             IngestionState
	}{
		{2, 2, IngestionCompleted},
		{2, 1, IngestionCompletedWithErrors},
		{2, 0, IngestionFailed},
		{0, 0, IngestionFailed},
	}

	for _, tt := range tests {
		if got := FinalState(tt.total, tt.processed); got != tt.want {
			t.Errorf("FinalState(%d, %d) = %v, want %v", tt.total, tt.processed, got, tt.want)
		}
	}
}

func TestProjectHeaders(t *testing.T) {
	p := Project{
		ContentType:  "application/json",
		HeaderKeys:   []string{"Authorization", " X-Tenant ", ""},
		HeaderValues: []string{"Bearer t", "acme"},
	}

	h := p.Headers()
	if h["Authorization"] != "Bearer t" || h["X-Tenant"] != "acme" {
		t.Fatalf("unexpected headers: %v", h)
	}
	if h["Content-Type"] != "application/json" {
		t.Fatalf("Content-Type = %q", h["Content-Type"])
	}
	if len(h) != 3 {
		t.Fatalf("len(headers) = %d, want 3", len(h))
	}
}
