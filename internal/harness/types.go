package harness

// Resolution is a resolved return op and its value.
type Resolution struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Executed lists command labels in core execution order.
	Executed []string `json:"executed"`

	// Notified lists callback ids in notification order.
	Notified []uint32 `json:"notified"`

	// Resolved lists resolved return ops in queue order.
	Resolved []Resolution `json:"resolved"`

	// Pending lists return ops that never resolved, in queue order.
	Pending []string `json:"pending"`

	// Calls lists render API methods in call order.
	Calls []string `json:"calls"`

	// Synced is the total object count of all sync passes.
	Synced int `json:"synced"`

	// Live is the number of objects still registered at the end.
	Live int `json:"live"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with empty logs.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Executed: []string{},
		Notified: []uint32{},
		Resolved: []Resolution{},
		Pending:  []string{},
		Calls:    []string{},
		Errors:   []string{},
	}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ResolvedLabels returns the labels of the resolved ops.
func (r *Result) ResolvedLabels() []string {
	out := make([]string, len(r.Resolved))
	for i, res := range r.Resolved {
		out[i] = res.Label
	}
	return out
}

// Value returns the resolved value for label.
func (r *Result) Value(label string) (any, bool) {
	for _, res := range r.Resolved {
		if res.Label == label {
			return res.Value, true
		}
	}
	return nil, false
}
