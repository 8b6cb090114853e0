package entities

// StructuredSummary is the validated shape extracted from model output
type StructuredSummary struct {
	Overview     string       `json:"overview"`
	KeyDecisions []string     `json:"keyDecisions"`
	ActionItems  []ActionItem `json:"actionItems"`
}

// NewStructuredSummary returns a summary with empty, non-nil lists
func NewStructuredSummary(overview string) *StructuredSummary {
	return &StructuredSummary{
		Overview:     overview,
		KeyDecisions: []string{},
		ActionItems:  []ActionItem{},
	}
}
