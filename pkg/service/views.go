package service

import (
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/decision"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response shape of every use case.
type Envelope[T any] struct {
	Status  string   `json:"status"`
	Data    *T       `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	err     error
}

// OK reports whether the use case succeeded.
func (e Envelope[T]) OK() bool {
	return e.Status == StatusSuccess
}

// Err is the underlying failure, nil on success. Match it with errors.Is against
// ErrNotFound or ErrStoreUnavailable, or errors.As against *query.ValidationError.
func (e Envelope[T]) Err() error {
	return e.err
}

func success[T any](data T) Envelope[T] {
	return Envelope[T]{Status: StatusSuccess, Data: &data}
}

// ListItem is the summary of one trace in a listing.
type ListItem struct {
	ID                 string                 `json:"id"`
	ExecutionID        string                 `json:"execution_id"`
	ConversationID     string                 `json:"conversation_id"`
	BusinessID         string                 `json:"business_id,omitempty"`
	Context            string                 `json:"context"`
	Status             models.ExecutionStatus `json:"status"`
	StartTime          time.Time              `json:"start_time"`
	EndTime            *time.Time             `json:"end_time,omitempty"`
	TotalDurationMs    *int64                 `json:"total_duration_ms,omitempty"`
	OriginalMessage    string                 `json:"original_message"`
	StepsCount         int                    `json:"steps_count"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
	FinalDecision      decision.Decision      `json:"final_decision"`
	FinalDecisionLabel string                 `json:"final_decision_label"`
	AIResponseText     string                 `json:"ai_response_text"`
}

type ListResult struct {
	Items      []ListItem `json:"items"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

// ExecutionLogDetail is a full trace plus everything derived from it for display.
type ExecutionLogDetail struct {
	models.ExecutionLog
	FormattedStartTime string                            `json:"formatted_start_time"`
	FormattedEndTime   string                            `json:"formatted_end_time,omitempty"`
	FormattedDuration  string                            `json:"formatted_duration,omitempty"`
	StepsByType        map[string][]models.ExecutionStep `json:"steps_by_type"`
	FinalDecision      decision.Decision                 `json:"final_decision"`
	FinalDecisionLabel string                            `json:"final_decision_label"`
	FinalDecisionClass string                            `json:"final_decision_class"`
	AIResponseText     string                            `json:"ai_response_text"`
}

type StepPage struct {
	Items      []models.ExecutionStep `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}
