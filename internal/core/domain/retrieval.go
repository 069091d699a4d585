package domain

type FAQEntry struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Keywords []string `json:"keywords"`
	Text     string   `json:"text,omitempty"`
	ClientID string   `json:"client_id,omitempty"`
}

// EmbeddingText is the text a FAQ entry was indexed with.
func (e FAQEntry) EmbeddingText() string {
	if e.Text != "" {
		return e.Text
	}
	return "Q: " + e.Question + " \nA: " + e.Answer
}

// RetrievalMatch is one ranked hit. Ordering is by descending Score.
type RetrievalMatch struct {
	SourceID string         `json:"source_id"`
	Score    float64        `json:"score"`
	Snippet  string         `json:"snippet,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FAQAnswer separates "nothing matched" from a synthesized answer. Faults are
// reported through the accompanying error, never through Matched.
type FAQAnswer struct {
	Text    string
	Matched bool
	Matches []RetrievalMatch
}

type ProductAnswer struct {
	Text            string
	Label           Label
	Results         int
	RelaxationSteps int
	Filtered        bool
}
