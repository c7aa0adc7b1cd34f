package decision

import (
	"strings"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
)

// DecisionMatcher is one source of a final decision.
type DecisionMatcher struct {
	Name  string
	Match func(log *models.ExecutionLog, p Payload) (Decision, bool)
}

// TextMatcher is one source of the rendered AI response.
type TextMatcher struct {
	Name  string
	Match func(log *models.ExecutionLog, p Payload) (string, bool)
}

// DecisionPriority is evaluated in order; the first match wins. When nothing matches the
// decision is Unknown.
var DecisionPriority = []DecisionMatcher{
	{Name: "ai_output.decision", Match: fromAIOutputDecision},
	{Name: "response.requires_human_assistance", Match: fromHumanAssistanceFlag},
	{Name: "workflow_step", Match: fromWorkflowSteps},
	{Name: "callback_request", Match: fromCallbackRequests},
	{Name: "status", Match: fromStatus},
}

// TextPriority is evaluated in order; the first non-empty text wins. When nothing matches
// the text is empty.
var TextPriority = []TextMatcher{
	{Name: "final_message", Match: func(_ *models.ExecutionLog, p Payload) (string, bool) {
		return p.FinalMessage, p.Has(ShapeFinalMessage)
	}},
	{Name: "ai_output.response", Match: func(_ *models.ExecutionLog, p Payload) (string, bool) {
		return p.AIOutput.Response, p.AIOutput.Response != ""
	}},
	{Name: "response.final_message", Match: func(_ *models.ExecutionLog, p Payload) (string, bool) {
		return p.Response.FinalMessage, p.Response.FinalMessage != ""
	}},
	{Name: "response.ai_output.text", Match: func(_ *models.ExecutionLog, p Payload) (string, bool) {
		return p.Response.AIOutputText, p.Response.AIOutputText != ""
	}},
	{Name: "text", Match: func(_ *models.ExecutionLog, p Payload) (string, bool) {
		return p.Text, p.Has(ShapeText)
	}},
	{Name: "llm_response", Match: fromLastLLMResponse},
}

// Extractor applies matcher chains to traces. The zero value uses DecisionPriority and
// TextPriority.
type Extractor struct {
	Decisions []DecisionMatcher
	Texts     []TextMatcher
}

// FinalDecision classifies log. It never fails.
func (e Extractor) FinalDecision(log models.ExecutionLog) Decision {
	d, _ := e.ExplainDecision(log)
	return d
}

// ExplainDecision is FinalDecision plus the name of the matcher that decided, or "" when
// none did.
func (e Extractor) ExplainDecision(log models.ExecutionLog) (Decision, string) {
	matchers := e.Decisions
	if matchers == nil {
		matchers = DecisionPriority
	}
	p := ParsePayload(log.FinalResponse)
	for _, m := range matchers {
		if d, ok := m.Match(&log, p); ok {
			return d, m.Name
		}
	}
	return Unknown, ""
}

// AIResponseText returns the answer rendered to the customer, or "".
func (e Extractor) AIResponseText(log models.ExecutionLog) string {
	matchers := e.Texts
	if matchers == nil {
		matchers = TextPriority
	}
	p := ParsePayload(log.FinalResponse)
	for _, m := range matchers {
		if text, ok := m.Match(&log, p); ok {
			return text
		}
	}
	return ""
}

// ExtractFinalDecision uses the default priority.
func ExtractFinalDecision(log models.ExecutionLog) Decision {
	return Extractor{}.FinalDecision(log)
}

// ExtractAIResponseText uses the default priority.
func ExtractAIResponseText(log models.ExecutionLog) string {
	return Extractor{}.AIResponseText(log)
}

func fromAIOutputDecision(_ *models.ExecutionLog, p Payload) (Decision, bool) {
	d := Decision(p.AIOutput.Decision).Normalize()
	if d == "" {
		return "", false
	}
	return d, true
}

func fromHumanAssistanceFlag(_ *models.ExecutionLog, p Payload) (Decision, bool) {
	if p.Response.RequiresHumanAssistance {
		return RequestHumanAssistance, true
	}
	return "", false
}

func fromWorkflowSteps(log *models.ExecutionLog, _ Payload) (Decision, bool) {
	for i := len(log.Steps) - 1; i >= 0; i-- {
		step := log.Steps[i]
		if !step.Is(models.WorkflowStepType) {
			continue
		}
		message := strings.ToLower(step.Message)
		metaType := Decision(stringAt(step.Metadata, "step_type")).Normalize()
		for _, d := range stepDecisions {
			if strings.Contains(message, strings.ToLower(string(d))) || metaType == d {
				return d, true
			}
		}
	}
	return "", false
}

func fromCallbackRequests(log *models.ExecutionLog, _ Payload) (Decision, bool) {
	for i := len(log.Steps) - 1; i >= 0; i-- {
		step := log.Steps[i]
		if !step.Is(models.CallbackRequestStepType) {
			continue
		}
		ctx := Decision(stringAt(step.Payload, "context")).Normalize()
		for _, d := range stepDecisions {
			if ctx == d {
				return d, true
			}
		}
	}
	return "", false
}

func fromStatus(log *models.ExecutionLog, _ Payload) (Decision, bool) {
	if strings.TrimSpace(string(log.Status)) == "" {
		return "", false
	}
	return Decision(log.Status).Normalize(), true
}

func fromLastLLMResponse(log *models.ExecutionLog, _ Payload) (string, bool) {
	for i := len(log.Steps) - 1; i >= 0; i-- {
		if log.Steps[i].Is(models.LLMResponseStepType) {
			text := stringAt(log.Steps[i].Response, "text")
			return text, text != ""
		}
	}
	return "", false
}
