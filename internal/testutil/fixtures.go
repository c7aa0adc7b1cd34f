package testutil

import (
	"fmt"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
)

// BaseTime is the start time of the first fixture trace.
var BaseTime = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

type TraceOption func(*models.ExecutionLog)

// Trace builds a completed TRY_ANSWER trace started at BaseTime.
func Trace(id string, opts ...TraceOption) models.ExecutionLog {
	end := BaseTime.Add(1500 * time.Millisecond)
	duration := int64(1500)
	log := models.ExecutionLog{
		ID:              id,
		ExecutionID:     "exec-" + id,
		ConversationID:  "conv-" + id,
		BusinessID:      "biz-1",
		Context:         "TRY_ANSWER",
		Status:          models.CompletedExecutionStatus,
		StartTime:       BaseTime,
		EndTime:         &end,
		TotalDurationMs: &duration,
		OriginalMessage: "Where is my order?",
		Steps:           []models.ExecutionStep{},
		CreatedAt:       BaseTime,
		UpdatedAt:       end,
	}
	for _, opt := range opts {
		opt(&log)
	}
	return log
}

func WithStatus(s models.ExecutionStatus) TraceOption {
	return func(l *models.ExecutionLog) {
		l.Status = s
		if s == models.RunningExecutionStatus {
			l.EndTime = nil
			l.TotalDurationMs = nil
		}
	}
}

func WithContext(ctx string) TraceOption {
	return func(l *models.ExecutionLog) { l.Context = ctx }
}

func WithBusiness(id string) TraceOption {
	return func(l *models.ExecutionLog) { l.BusinessID = id }
}

func WithConversation(id string) TraceOption {
	return func(l *models.ExecutionLog) { l.ConversationID = id }
}

func WithMessage(msg string) TraceOption {
	return func(l *models.ExecutionLog) { l.OriginalMessage = msg }
}

// WithStart moves the trace, keeping its duration.
func WithStart(t time.Time) TraceOption {
	return func(l *models.ExecutionLog) {
		l.StartTime = t
		l.CreatedAt = t
		if l.TotalDurationMs != nil {
			end := t.Add(time.Duration(*l.TotalDurationMs) * time.Millisecond)
			l.EndTime = &end
		}
	}
}

// WithDuration sets total_duration_ms; a negative value clears it.
func WithDuration(ms int64) TraceOption {
	return func(l *models.ExecutionLog) {
		if ms < 0 {
			l.TotalDurationMs = nil
			return
		}
		l.TotalDurationMs = &ms
		end := l.StartTime.Add(time.Duration(ms) * time.Millisecond)
		l.EndTime = &end
	}
}

func WithFinalResponse(v interface{}) TraceOption {
	return func(l *models.ExecutionLog) { l.FinalResponse = v }
}

func WithSteps(steps ...models.ExecutionStep) TraceOption {
	return func(l *models.ExecutionLog) { l.Steps = append(l.Steps, steps...) }
}

// Step builds an info-level step of type t.
func Step(t models.StepType, message string) models.ExecutionStep {
	return models.ExecutionStep{
		ID:        fmt.Sprintf("step-%s-%d", t, len(message)),
		StepType:  t,
		Timestamp: BaseTime,
		Level:     models.InfoLogLevel,
		Message:   message,
	}
}

// Traces builds n traces with ids prefix-1..prefix-n, one minute apart.
func Traces(prefix string, n int, opts ...TraceOption) []models.ExecutionLog {
	logs := make([]models.ExecutionLog, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		all := append([]TraceOption{WithStart(BaseTime.Add(time.Duration(i) * time.Minute))}, opts...)
		logs = append(logs, Trace(id, all...))
	}
	return logs
}
