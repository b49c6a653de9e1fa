package harness

// StepResult records what one step did.
type StepResult struct {
	Step      int    `json:"step"`
	Action    string `json:"action"`
	Caller    string `json:"caller,omitempty"`
	ID        string `json:"id,omitempty"`
	Status    string `json:"status,omitempty"`
	Artifacts int    `json:"artifacts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ListedRecord is one row of the final listing.
type ListedRecord struct {
	ID        string   `json:"id"`
	Owner     string   `json:"owner"`
	Status    string   `json:"status"`
	CreatedAt int64    `json:"created_at"`
	Artifacts []string `json:"artifacts,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Trace has one entry per step, in order.
	Trace []StepResult `json:"trace"`

	// Listing is the final List output, newest first.
	Listing []ListedRecord `json:"listing"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []StepResult{},
		Listing: []ListedRecord{},
		Errors:  []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
