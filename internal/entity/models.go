package entity

import (
	"strings"
	"time"
)

// Project is a registered target endpoint under periodic benchmarking.
// Rows are written by an external CRUD service.
type Project struct {
	ID                string
	OwnerID           string
	Name              string
	ContentType       string
	BaseURL           string
	EndpointPath      string
	Method            string
	HeaderKeys        []string
	HeaderValues      []string
	BodyTemplate      BodyTemplate
	QuestionPath      string
	IsActive          bool
	TestIntervalHours int
	KnowledgeBaseID   string
	RegisteredAt      time.Time
	LastTestedAt      *time.Time
}

// Headers zips HeaderKeys and HeaderValues, ignoring blank keys.
func (p *Project) Headers() map[string]string {
	headers := make(map[string]string, len(p.HeaderKeys))
	for i, key := range p.HeaderKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		var value string
		if i < len(p.HeaderValues) {
			value = strings.TrimSpace(p.HeaderValues[i])
		}
		headers[key] = value
	}
	if p.ContentType != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = p.ContentType
		}
	}
	return headers
}

// ProjectSchedule is the scheduler's view of an active project.
type ProjectSchedule struct {
	ProjectID         string
	OwnerID           string
	TestIntervalHours int
	LastResultAt      *time.Time
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Chunk is a bounded slice of source document text.
type Chunk struct {
	Content   string            `json:"content" bson:"content"`
	Source    string            `json:"source" bson:"source"`
	Index     int               `json:"chunk_index" bson:"chunk_index"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

// QAPair is a synthesized question with its reference answer.
type QAPair struct {
	Question    string     `json:"question" bson:"question"`
	Answer      string     `json:"answer" bson:"answer"`
	Context     string     `json:"context" bson:"context"`
	Difficulty  Difficulty `json:"difficulty" bson:"difficulty"`
	GeneratedAt time.Time  `json:"generated_at" bson:"generated_at"`
	Verified    bool       `json:"verified" bson:"verified"`
}

type FileData struct {
	Filename string
	Content  []byte
}
