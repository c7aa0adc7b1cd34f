package decision

// Shape is a set of recognised final_response encodings. One payload can carry several.
type Shape uint8

const (
	// ShapeText is a bare string payload.
	ShapeText Shape = 1 << iota
	// ShapeFinalMessage is {"final_message": "..."}.
	ShapeFinalMessage
	// ShapeAIOutput is {"ai_output": {"decision": "...", "response": "..."}}.
	ShapeAIOutput
	// ShapeResponseEnvelope is {"response": {"final_message", "ai_output": {"text"}, "requires_human_assistance", "decision"}}.
	ShapeResponseEnvelope
	// ShapeUnrecognized is a present payload matching none of the above.
	ShapeUnrecognized

	// ShapeAbsent means there is no payload.
	ShapeAbsent Shape = 0
)

type AIOutput struct {
	Decision string
	Response string
}

type ResponseEnvelope struct {
	FinalMessage            string
	AIOutputText            string
	Decision                string
	RequiresHumanAssistance bool
}

// Payload is a parsed final_response.
type Payload struct {
	Shape        Shape
	Text         string
	FinalMessage string
	Context      string
	AIOutput     AIOutput
	Response     ResponseEnvelope
}

// Has reports whether every shape in s was recognised.
func (p Payload) Has(s Shape) bool {
	return s != 0 && p.Shape&s == s
}

// ParsePayload classifies a raw final_response value. It accepts what a JSON or BSON
// decoder produces for an interface{} field and never fails; anything it cannot read is
// ShapeUnrecognized.
func ParsePayload(raw interface{}) Payload {
	switch v := raw.(type) {
	case nil:
		return Payload{Shape: ShapeAbsent}
	case string:
		if v == "" {
			return Payload{Shape: ShapeAbsent}
		}
		return Payload{Shape: ShapeText, Text: v}
	case map[string]interface{}:
		return parseObject(v)
	}
	return Payload{Shape: ShapeUnrecognized}
}

func parseObject(obj map[string]interface{}) Payload {
	var p Payload
	p.Context = stringAt(obj, "context")

	if msg := stringAt(obj, "final_message"); msg != "" {
		p.Shape |= ShapeFinalMessage
		p.FinalMessage = msg
	}

	if ai, ok := obj["ai_output"].(map[string]interface{}); ok {
		p.AIOutput = AIOutput{
			Decision: stringAt(ai, "decision"),
			Response: stringAt(ai, "response"),
		}
		if p.AIOutput.Decision != "" || p.AIOutput.Response != "" {
			p.Shape |= ShapeAIOutput
		}
	}

	if resp, ok := obj["response"].(map[string]interface{}); ok {
		env := ResponseEnvelope{
			FinalMessage: stringAt(resp, "final_message"),
			Decision:     stringAt(resp, "decision"),
		}
		if ai, ok := resp["ai_output"].(map[string]interface{}); ok {
			env.AIOutputText = stringAt(ai, "text")
		}
		_, hasFlag := resp["requires_human_assistance"].(bool)
		env.RequiresHumanAssistance, _ = resp["requires_human_assistance"].(bool)
		p.Response = env
		if env.FinalMessage != "" || env.AIOutputText != "" || env.Decision != "" || hasFlag {
			p.Shape |= ShapeResponseEnvelope
		}
	}

	if p.Shape == 0 {
		p.Shape = ShapeUnrecognized
	}
	return p
}

func stringAt(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
