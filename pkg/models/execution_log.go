package models

import "time"

type ExecutionStatus string

const (
	RunningExecutionStatus   ExecutionStatus = "running"
	CompletedExecutionStatus ExecutionStatus = "completed"
	FailedExecutionStatus    ExecutionStatus = "failed"
)

// Message is one prior turn of the conversation that triggered the execution.
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// ExecutionLog is one recorded run of the orchestration engine. Logs are written by the
// engine and are read-only here.
type ExecutionLog struct {
	ID              string          `json:"id" bson:"-" db:"id"`                                                  // Assigned by the store
	ExecutionID     string          `json:"execution_id" bson:"execution_id" db:"execution_id"`                   // Engine-side run identifier
	ConversationID  string          `json:"conversation_id" bson:"conversation_id" db:"conversation_id"`          // Customer conversation
	BusinessID      string          `json:"business_id,omitempty" bson:"business_id,omitempty" db:"business_id"` // Tenant
	Context         string          `json:"context" bson:"context" db:"context"`                                  // Engine entry point (e.g. "TRY_ANSWER")
	Status          ExecutionStatus `json:"status" bson:"status" db:"status"`                                     // "running", "completed", "failed"
	StartTime       time.Time       `json:"start_time" bson:"start_time" db:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty" bson:"end_time,omitempty" db:"end_time"`                            // Set once completed or failed
	TotalDurationMs *int64          `json:"total_duration_ms,omitempty" bson:"total_duration_ms,omitempty" db:"total_duration_ms"` // Nullable

	OriginalMessage  string                 `json:"original_message" bson:"original_message" db:"original_message"`
	PreviousMessages []Message              `json:"previous_messages,omitempty" bson:"previous_messages,omitempty"`
	RequestData      map[string]interface{} `json:"request_data,omitempty" bson:"request_data,omitempty"`
	CallbackURLs     map[string]string      `json:"callback_urls,omitempty" bson:"callback_urls,omitempty"`

	Steps []ExecutionStep `json:"steps" bson:"steps"` // Ordered by occurrence

	// FinalResponse is either a string or a JSON object whose shape depends on the
	// engine version that produced it. See package decision.
	FinalResponse interface{} `json:"final_response,omitempty" bson:"final_response,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty" bson:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}
