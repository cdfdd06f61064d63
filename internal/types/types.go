package types

import "strings"

// Screening ----------------------------------------------------------------------

// ScreeningProfile is the set of basics collected before intake.
type ScreeningProfile struct {
	Name               string `json:"name" yaml:"name"`
	Gender             string `json:"gender" yaml:"gender"`
	PartnerPreference  string `json:"partnerPreference" yaml:"partnerPreference"`
	RelationshipStatus string `json:"relationshipStatus" yaml:"relationshipStatus"`
}

// Choices offered by the screening form.
var (
	GenderOptions = []string{
		"Woman",
		"Man",
		"Non-binary",
		"Prefer to self-describe",
		"Prefer not to say",
	}
	PartnerPreferenceOptions = []string{
		"Women",
		"Men",
		"Everyone",
		"Open to connection",
	}
	RelationshipStatusOptions = []string{
		"Single",
		"Casually dating",
		"It's complicated",
		"Exploring",
	}
)

// MissingFields returns the JSON names of blank fields, in form order.
func (p ScreeningProfile) MissingFields() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"gender", p.Gender},
		{"partnerPreference", p.PartnerPreference},
		{"relationshipStatus", p.RelationshipStatus},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// Complete reports whether every field is filled in.
func (p ScreeningProfile) Complete() bool { return len(p.MissingFields()) == 0 }

// Intake -------------------------------------------------------------------------

type IntakeAnswer struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Blueprint ----------------------------------------------------------------------

type PartnerFitProfile struct {
	Archetypes        []string `json:"archetypes" yaml:"archetypes"`
	GreenFlags        []string `json:"greenFlags" yaml:"greenFlags"`
	FrictionPoints    []string `json:"frictionPoints" yaml:"frictionPoints"`
	CommunicationTips []string `json:"communicationTips" yaml:"communicationTips"`
}

type ActionKit struct {
	BioRewrite          string   `json:"bioRewrite" yaml:"bioRewrite"`
	ConversationOpeners []string `json:"conversationOpeners" yaml:"conversationOpeners"`
	MicroHabits         string   `json:"microHabits" yaml:"microHabits"`
}

// Blueprint is the synthesis produced once per completed intake.
// Summary travels as "emotionalBlueprint" on the wire.
type Blueprint struct {
	Summary           string            `json:"emotionalBlueprint" yaml:"emotionalBlueprint"`
	PartnerFitProfile PartnerFitProfile `json:"partnerFitProfile" yaml:"partnerFitProfile"`
	ActionKit         ActionKit         `json:"actionKit" yaml:"actionKit"`
}

// Results exploration ------------------------------------------------------------

type VibeCheckQuestion struct {
	Question       string `json:"question" yaml:"question"`
	AlignedAnswer  string `json:"alignedAnswer" yaml:"alignedAnswer"`
	FrictionSignal string `json:"frictionSignal" yaml:"frictionSignal"`
}
