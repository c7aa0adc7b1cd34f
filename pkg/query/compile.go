package query

import (
	"github.com/muizidn/cs-ai-help-admin-management/pkg/decision"
)

// Compiler turns a Query into a Predicate. It holds no state and is safe for concurrent use.
type Compiler struct{}

// Compile validates q and returns the predicate selecting the matching traces. Each present
// field adds one AND'd constraint. The search and ai_response clauses share a single OR
// group, customer_message is its own constraint, and final_decision expands into an OR
// group of the encodings that label has had over time.
func (Compiler) Compile(q Query) (Predicate, error) {
	q = q.Normalized()
	if err := q.Validate(); err != nil {
		return Predicate{}, err
	}

	var clauses []Predicate
	if q.Status != "" {
		clauses = append(clauses, Eq(FieldStatus, q.Status))
	}
	if q.Context != "" {
		clauses = append(clauses, Eq(FieldContext, q.Context))
	}
	if q.ConversationID != "" {
		clauses = append(clauses, Eq(FieldConversationID, q.ConversationID))
	}
	if q.BusinessID != "" {
		clauses = append(clauses, Eq(FieldBusinessID, q.BusinessID))
	}

	var text []Predicate
	if q.Search != "" {
		text = append(text, SearchClauses(q.Search)...)
	}
	if q.AIResponse != "" {
		text = append(text, AIResponseClauses(q.AIResponse)...)
	}
	if len(text) > 0 {
		clauses = append(clauses, Or(text...))
	}

	if q.CustomerMessage != "" {
		clauses = append(clauses, Contains(FieldOriginalMessage, q.CustomerMessage))
	}

	if q.FinalDecision != "" {
		if dc := DecisionClauses(decision.Decision(q.FinalDecision)); len(dc) > 0 {
			clauses = append(clauses, Or(dc...))
		}
	}

	from, to, _ := q.DateRange()
	if from != nil || to != nil {
		clauses = append(clauses, Range(FieldStartTime, from, to))
	}

	if q.StepType != "" {
		clauses = append(clauses, Eq(FieldStepType, q.StepType))
	}

	return And(clauses...), nil
}

// SearchClauses are the free-text alternatives for a search term.
func SearchClauses(term string) []Predicate {
	return []Predicate{
		Contains(FieldOriginalMessage, term),
		Contains(FieldExecutionID, term),
		Contains(FieldConversationID, term),
		Contains(FieldContext, term),
	}
}

// AIResponseClauses are every place the rendered AI answer may live.
func AIResponseClauses(term string) []Predicate {
	return []Predicate{
		Contains(FieldFinalMessage, term),
		Contains(FieldAIOutputResponse, term),
		Contains(FieldResponseFinalMessage, term),
		Contains(FieldResponseAIOutputText, term),
		Contains(FieldStepResponseText, term),
	}
}

// DecisionClauses returns the alternatives matching traces classified as d, or nil when d
// is not a label the store can be filtered by.
func DecisionClauses(d decision.Decision) []Predicate {
	decisionIn := func(labels ...string) []Predicate {
		var ps []Predicate
		for _, l := range labels {
			ps = append(ps, Contains(FieldAIOutputDecision, l), Contains(FieldResponseDecision, l))
		}
		return ps
	}

	switch d.Normalize() {
	case decision.SentAnswer:
		return append(decisionIn("SENT_ANSWER", "DIRECT_REPLY"),
			Eq(FieldFinalContext, "TRY_ANSWER"),
			Contains(FieldStepMessage, "sent_answer"),
			Eq(FieldStepMetadataType, string(decision.SentAnswer)),
			And(
				Eq(FieldStatus, "completed"),
				Ne(FieldRequiresHumanAssistance, true),
			),
		)
	case decision.RequestHumanAssistance:
		return append(decisionIn("REQUEST_HUMAN_ASSISTANCE", "HUMAN_ASSISTANCE"),
			Eq(FieldFinalContext, "TRY_ANSWER"),
			Eq(FieldRequiresHumanAssistance, true),
			Contains(FieldStepMessage, "request_human_assistance"),
			Eq(FieldStepMetadataType, string(decision.RequestHumanAssistance)),
		)
	case decision.NoAnswerGiven:
		return append(decisionIn("NO_ANSWER_GIVEN", "NO_ANSWER"),
			Eq(FieldFinalContext, "TRY_ANSWER"),
			Contains(FieldStepMessage, "no_answer_given"),
			Eq(FieldStepMetadataType, string(decision.NoAnswerGiven)),
		)
	case decision.DirectReply:
		return decisionIn("DIRECT_REPLY")
	case decision.FallbackReply:
		return decisionIn("FALLBACK_REPLY")
	case decision.Failed:
		return []Predicate{Eq(FieldStatus, "failed")}
	case decision.Running:
		return []Predicate{Eq(FieldStatus, "running")}
	}
	return nil
}
