package entity

import "mime/multipart"

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type TriggerIngestionRequest struct {
	ProjectID   string
	OwnerID     string
	CallbackURL string
	Files       []*multipart.FileHeader
}

type ListResultsRequest struct {
	ProjectID string
	Page      int
	PageSize  int
}

// Validate checks the pagination bounds.
func (r *ListResultsRequest) Validate() error {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PageSize == 0 {
		r.PageSize = DefaultPageSize
	}
	if r.Page < 1 {
		return NewValidationError("page", ErrInvalidParameter)
	}
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		return NewValidationError("page_size", ErrInvalidParameter)
	}
	return nil
}

func (r *ListResultsRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	Total        int  `json:"total"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
	NextPage     *int `json:"next_page"`
	PreviousPage *int `json:"previous_page"`
}

// NewPagination builds page metadata for total rows.
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	p := Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
	if p.HasNext {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrevious {
		prev := page - 1
		p.PreviousPage = &prev
	}
	return p
}

type ListResultsResponse struct {
	ProjectID  string        `json:"project_id"`
	Results    []*TestResult `json:"results"`
	Pagination Pagination    `json:"pagination"`
}

type TriggerIngestionResponse struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Ingestion *IngestionStatus `json:"ingestion"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
