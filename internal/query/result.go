package query

import "github.com/alphabot-ai/contextoverflow/internal/model"

// Result is one page of questions.
type Result struct {
	Questions []model.Question `json:"questions"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Offset    int              `json:"offset"`
	HasMore   bool             `json:"has_more"`
}

func NewResult(items []model.Question, total int, c Criteria) Result {
	if items == nil {
		items = []model.Question{}
	}
	return Result{
		Questions: items,
		Total:     total,
		Limit:     c.Limit,
		Offset:    c.Offset,
		HasMore:   c.Offset+len(items) < total,
	}
}
