package domain

import "time"

type Route string

const (
	RouteFAQ         Route = "faq"
	RouteProduct     Route = "product"
	RouteFallThrough Route = "fallthrough"
	RouteApology     Route = "apology"
)

type Answer struct {
	Text           string `json:"text"`
	Route          Route  `json:"route"`
	CorrectedQuery string `json:"corrected_query"`
	QueryLabel     Label  `json:"query_label,omitempty"`
	TaskLabel      Label  `json:"task_label,omitempty"`

	RelaxationSteps int `json:"relaxation_steps,omitempty"`
	Sources         int `json:"sources,omitempty"`
	// FaultStage names the stage whose failure produced an apology.
	FaultStage string `json:"fault_stage,omitempty"`
}

// AnswerEvent is the audit record of one answered query. It never carries the
// conversation context.
type AnswerEvent struct {
	ID              string        `json:"id"`
	RequestID       string        `json:"request_id,omitempty"`
	ClientID        string        `json:"client_id"`
	Route           Route         `json:"route"`
	CorrectedQuery  string        `json:"corrected_query"`
	QueryLabel      Label         `json:"query_label,omitempty"`
	TaskLabel       Label         `json:"task_label,omitempty"`
	RelaxationSteps int           `json:"relaxation_steps"`
	Sources         int           `json:"sources"`
	FaultStage      string        `json:"fault_stage,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	CreatedAt       time.Time     `json:"created_at"`
}
