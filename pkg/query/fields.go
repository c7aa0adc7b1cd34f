package query

// Document paths understood by every store adapter.
const (
	FieldID              = "id"
	FieldExecutionID     = "execution_id"
	FieldConversationID  = "conversation_id"
	FieldBusinessID      = "business_id"
	FieldContext         = "context"
	FieldStatus          = "status"
	FieldStartTime       = "start_time"
	FieldEndTime         = "end_time"
	FieldTotalDurationMs = "total_duration_ms"
	FieldCreatedAt       = "created_at"
	FieldOriginalMessage = "original_message"

	FieldFinalMessage            = "final_response.final_message"
	FieldFinalContext            = "final_response.context"
	FieldAIOutputDecision        = "final_response.ai_output.decision"
	FieldAIOutputResponse        = "final_response.ai_output.response"
	FieldResponseFinalMessage    = "final_response.response.final_message"
	FieldResponseAIOutputText    = "final_response.response.ai_output.text"
	FieldResponseDecision        = "final_response.response.decision"
	FieldRequiresHumanAssistance = "final_response.response.requires_human_assistance"

	FieldStepType         = "steps.step_type"
	FieldStepMessage      = "steps.message"
	FieldStepMetadataType = "steps.metadata.step_type"
	FieldStepResponseText = "steps.response.text"
)

// SortFields are the fields a caller may sort by.
var SortFields = []string{FieldStartTime, FieldEndTime, FieldTotalDurationMs, FieldCreatedAt}

// DefaultSortField is used when the caller does not pick one.
const DefaultSortField = FieldStartTime

func isSortField(f string) bool {
	for _, s := range SortFields {
		if s == f {
			return true
		}
	}
	return false
}
