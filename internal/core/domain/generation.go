package domain

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams carries optional sampling controls. Nil pointers and zero
// values mean "let the backend decide".
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   int
	Model       string
}

func Float64(v float64) *float64 {
	return &v
}

// Label is a classification outcome. Classifier output is free text, so a
// Label may hold values outside the constants below.
type Label string

const (
	LabelProduct   Label = "PRODUCT"
	LabelOther     Label = "OTHER"
	LabelTechnical Label = "TECHNICAL"
	LabelCreative  Label = "CREATIVE"
)

// ClassificationAxis selects the template a classifier prompts with.
type ClassificationAxis string

const (
	AxisProductOrOther      ClassificationAxis = "product_or_other"
	AxisTechnicalOrCreative ClassificationAxis = "technical_or_creative"
)

// NormalizeLabel uppercases a raw label and strips quoting and trailing
// punctuation models tend to add.
func NormalizeLabel(raw string) Label {
	return Label(strings.ToUpper(strings.Trim(strings.TrimSpace(raw), "\"'`.!: ")))
}

// Is reports whether l names target once normalized.
func (l Label) Is(target Label) bool {
	return NormalizeLabel(string(l)) == target
}

// ParamsForLabel maps the technical/creative axis to sampling presets.
func ParamsForLabel(label Label) GenerationParams {
	switch NormalizeLabel(string(label)) {
	case LabelTechnical:
		return GenerationParams{Temperature: Float64(0.3), TopP: Float64(0.8)}
	case LabelCreative:
		return GenerationParams{Temperature: Float64(1.2), TopP: Float64(0.1)}
	default:
		return GenerationParams{Temperature: Float64(0.5), TopP: Float64(0.5)}
	}
}
