package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Query is an operator's list/stats request. Zero values mean "not set".
type Query struct {
	Status          string `json:"status,omitempty" form:"status" validate:"omitempty,oneof=running completed failed"`
	Context         string `json:"context,omitempty" form:"context"`
	ConversationID  string `json:"conversation_id,omitempty" form:"conversation_id"`
	BusinessID      string `json:"business_id,omitempty" form:"business_id"`
	Search          string `json:"search,omitempty" form:"search"`
	CustomerMessage string `json:"customer_message,omitempty" form:"customer_message"`
	AIResponse      string `json:"ai_response,omitempty" form:"ai_response"`
	FinalDecision   string `json:"final_decision,omitempty" form:"final_decision"`
	StartDate       string `json:"start_date,omitempty" form:"start_date"`
	EndDate         string `json:"end_date,omitempty" form:"end_date"`
	StepType        string `json:"step_type,omitempty" form:"step_type" validate:"omitempty,oneof=api_invocation llm_query llm_response callback_request callback_response workflow_step error"`
	SortBy          string `json:"sort_by,omitempty" form:"sort_by" validate:"omitempty,oneof=start_time end_time total_duration_ms created_at"`
	SortOrder       string `json:"sort_order,omitempty" form:"sort_order" validate:"omitempty,oneof=asc desc"`
	Page            int    `json:"page,omitempty" form:"page" validate:"gte=0"`
	Limit           int    `json:"limit,omitempty" form:"limit" validate:"gte=0"`
}

// ValidationError lists every problem found in a Query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalized trims every text field and lower-cases the enumerated ones.
func (q Query) Normalized() Query {
	trim := strings.TrimSpace
	q.Status = strings.ToLower(trim(q.Status))
	q.Context = trim(q.Context)
	q.ConversationID = trim(q.ConversationID)
	q.BusinessID = trim(q.BusinessID)
	q.Search = trim(q.Search)
	q.CustomerMessage = trim(q.CustomerMessage)
	q.AIResponse = trim(q.AIResponse)
	q.FinalDecision = strings.ToUpper(trim(q.FinalDecision))
	q.StartDate = trim(q.StartDate)
	q.EndDate = trim(q.EndDate)
	q.StepType = strings.ToLower(trim(q.StepType))
	q.SortBy = strings.ToLower(trim(q.SortBy))
	q.SortOrder = strings.ToLower(trim(q.SortOrder))
	return q
}

// Validate checks enumerated fields, bounds and dates. The returned error, if any, is a
// *ValidationError.
func (q Query) Validate() error {
	var problems []string
	if err := validate.Struct(q); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, describe(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	if _, _, err := q.DateRange(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

const dateOnly = "2006-01-02"

// DateRange parses StartDate and EndDate into inclusive bounds. A date-only EndDate covers
// the whole day.
func (q Query) DateRange() (from, to *time.Time, err error) {
	if q.StartDate != "" {
		t, _, perr := parseDate(q.StartDate)
		if perr != nil {
			return nil, nil, errors.Errorf("start_date %q is not a valid ISO-8601 date", q.StartDate)
		}
		from = &t
	}
	if q.EndDate != "" {
		t, dayOnly, perr := parseDate(q.EndDate)
		if perr != nil {
			return nil, nil, errors.Errorf("end_date %q is not a valid ISO-8601 date", q.EndDate)
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, errors.Errorf("start_date must not be after end_date")
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), false, nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}
