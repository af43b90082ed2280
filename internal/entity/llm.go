package entity

// Purpose tags a completion with the pipeline stage requesting it.
type Purpose string

const (
	PurposeSynthesis     Purpose = "qa_synthesis"
	PurposePlanning      Purpose = "payload_planning"
	PurposeHallucination Purpose = "judge_hallucination"
	PurposeHelpfulness   Purpose = "judge_helpfulness"
)

type CompletionRequest struct {
	Purpose     Purpose
	System      string
	User        string
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// LLMCompleteRequest is the body sent to a generic completion service.
type LLMCompleteRequest struct {
	Purpose     string  `json:"purpose"`
	System      string  `json:"system"`
	Prompt      string  `json:"prompt"`
	JSONOutput  bool    `json:"json_output"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type LLMCompleteResponse struct {
	Result string `json:"result"`
}
