package gateway

import (
	"fmt"
	"maps"
	"slices"

	genai "google.golang.org/genai"
)

// Response contracts, one per call site. The same schema is sent to the
// provider and checked against the decoded payload.

func stringSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func stringListSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func count(n int64) *int64 { return &n }

var intakeQuestionsSchema = &genai.Schema{
	Type:     genai.TypeArray,
	Items:    &genai.Schema{Type: genai.TypeString},
	MinItems: count(IntakeQuestionCount),
	MaxItems: count(IntakeQuestionCount),
}

var blueprintSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"emotionalBlueprint": stringSchema("A 3-4 paragraph summary of their emotional patterns, attachment style, and core needs."),
		"partnerFitProfile": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"archetypes":        stringListSchema("List of compatible partner archetypes (e.g., 'The Creative Soul', 'The Stable Anchor')."),
				"greenFlags":        stringListSchema("List of positive signs to look for in a partner."),
				"frictionPoints":    stringListSchema("List of potential areas of conflict or disagreement."),
				"communicationTips": stringListSchema("Actionable tips for healthy communication with a compatible partner."),
			},
			Required:         []string{"archetypes", "greenFlags", "frictionPoints", "communicationTips"},
			PropertyOrdering: []string{"archetypes", "greenFlags", "frictionPoints", "communicationTips"},
		},
		"actionKit": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"bioRewrite":          stringSchema("A suggested rewrite of their dating app bio to attract compatible partners."),
				"conversationOpeners": stringListSchema("A list of 3-4 personalized conversation starters."),
				"microHabits":         stringSchema("A 7-day plan of small, actionable habits for self-growth in relationships."),
			},
			Required:         []string{"bioRewrite", "conversationOpeners", "microHabits"},
			PropertyOrdering: []string{"bioRewrite", "conversationOpeners", "microHabits"},
		},
	},
	Required:         []string{"emotionalBlueprint", "partnerFitProfile", "actionKit"},
	PropertyOrdering: []string{"emotionalBlueprint", "partnerFitProfile", "actionKit"},
}

var vibeCheckSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question":       stringSchema("The conversational question to ask."),
			"alignedAnswer":  stringSchema("An example of a positive, compatible answer (a 'green flag')."),
			"frictionSignal": stringSchema("An example of a problematic or incompatible answer (a 'red flag')."),
		},
		Required:         []string{"question", "alignedAnswer", "frictionSignal"},
		PropertyOrdering: []string{"question", "alignedAnswer", "frictionSignal"},
	},
	MinItems: count(VibeCheckCount),
	MaxItems: count(VibeCheckCount),
}

// validate checks kinds and required keys only. Item counts and string
// contents are not enforced; empty but well-typed values pass.
func validate(v any, s *genai.Schema, path string) error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case genai.TypeString:
		if _, ok := v.(string); !ok {
			return mismatch(path, "string", v)
		}
	case genai.TypeArray:
		items, ok := v.([]any)
		if !ok {
			return mismatch(path, "array", v)
		}
		for i, item := range items {
			if err := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case genai.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(path, "object", v)
		}
		for _, key := range s.Required {
			if val, ok := obj[key]; !ok || val == nil {
				return &SchemaError{Path: join(path, key), Reason: "required field missing"}
			}
		}
		for _, key := range slices.Sorted(maps.Keys(s.Properties)) {
			val, ok := obj[key]
			if !ok || val == nil {
				continue
			}
			if err := validate(val, s.Properties[key], join(path, key)); err != nil {
				return err
			}
		}
	}
	return nil
}

func mismatch(path, want string, got any) error {
	return &SchemaError{Path: path, Reason: fmt.Sprintf("expected %s, got %s", want, kindOf(got))}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
