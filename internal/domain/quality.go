package domain

// CheckResult is the outcome of a single quality check.
type CheckResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Value  float64 `json:"value"` // Measured metric: count or percentage
	Issue  string  `json:"issue,omitempty"`
}

// QualityReport bundles the results of every quality check run on one dataset.
// Reports are built once per check invocation and never modified afterwards.
type QualityReport struct {
	Name                string        `json:"name"`
	RecordCount         int           `json:"record_count"`
	NullPercentage      float64       `json:"null_percentage"`
	DuplicatePercentage float64       `json:"duplicate_percentage"`
	Checks              []CheckResult `json:"checks"`
	Passed              bool          `json:"passed"`
}

// Issues returns the issue strings of failed checks, in check order.
func (r QualityReport) Issues() []string {
	var issues []string
	for _, c := range r.Checks {
		if !c.Passed && c.Issue != "" {
			issues = append(issues, c.Issue)
		}
	}
	return issues
}
