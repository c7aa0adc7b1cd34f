package models

import (
	"strings"
	"time"
)

type StepType string

const (
	APIInvocationStepType    StepType = "api_invocation"
	LLMQueryStepType         StepType = "llm_query"
	LLMResponseStepType      StepType = "llm_response"
	CallbackRequestStepType  StepType = "callback_request"
	CallbackResponseStepType StepType = "callback_response"
	WorkflowStepType         StepType = "workflow_step"
	ErrorStepType            StepType = "error"
)

// StepTypes lists the known step types in display order.
var StepTypes = []StepType{
	APIInvocationStepType,
	LLMQueryStepType,
	LLMResponseStepType,
	CallbackRequestStepType,
	CallbackResponseStepType,
	WorkflowStepType,
	ErrorStepType,
}

// Normalize lower-cases the step type. Older engine versions wrote upper-case values.
func (t StepType) Normalize() StepType {
	return StepType(strings.ToLower(strings.TrimSpace(string(t))))
}

// Known reports whether t is one of StepTypes once normalized.
func (t StepType) Known() bool {
	n := t.Normalize()
	for _, st := range StepTypes {
		if st == n {
			return true
		}
	}
	return false
}

type LogLevel string

const (
	InfoLogLevel    LogLevel = "info"
	WarningLogLevel LogLevel = "warning"
	ErrorLogLevel   LogLevel = "error"
	DebugLogLevel   LogLevel = "debug"
)

// ExecutionStep is one sub-event recorded inside an execution.
type ExecutionStep struct {
	ID         string                 `json:"id" bson:"id"`
	StepType   StepType               `json:"step_type" bson:"step_type"`
	Timestamp  time.Time              `json:"timestamp" bson:"timestamp"`
	DurationMs *int64                 `json:"duration_ms,omitempty" bson:"duration_ms,omitempty"`
	Level      LogLevel               `json:"level" bson:"level"`
	Message    string                 `json:"message" bson:"message"`
	Payload    map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	Response   map[string]interface{} `json:"response,omitempty" bson:"response,omitempty"`
	Error      string                 `json:"error,omitempty" bson:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Is reports whether the step has type t, ignoring case.
func (s ExecutionStep) Is(t StepType) bool {
	return s.StepType.Normalize() == t.Normalize()
}
