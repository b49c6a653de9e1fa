package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerflow/internal/record"
)

// Scenario defines a workflow scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against one ledger.
	Steps []Step `yaml:"steps"`

	// Listing is the expected List output after all steps, newest first.
	// Omit to skip the check.
	Listing []ListingEntry `yaml:"listing,omitempty"`
}

// Step is one operation in a scenario.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Caller is the identity performing submit or advance.
	Caller string `yaml:"caller,omitempty"`

	// Payload is the submitted payload (submit only).
	Payload string `yaml:"payload,omitempty"`

	// CreatedAt pins the creation time of a submit (unix seconds).
	CreatedAt int64 `yaml:"created_at,omitempty"`

	// Record is the target record id (advance, drop, corrupt).
	Record string `yaml:"record,omitempty"`

	// Compute is the backend outcome this advance sees.
	// Omit to use the placeholder backend.
	Compute *ComputeOutcome `yaml:"compute,omitempty"`

	// Expect is checked against the step's result.
	Expect *Expect `yaml:"expect,omitempty"`
}

// ComputeOutcome scripts the compute backend for one advance.
type ComputeOutcome struct {
	Artifacts []string `yaml:"artifacts,omitempty"`
	Error     string   `yaml:"error,omitempty"`
}

// Expect describes a step's expected outcome.
type Expect struct {
	// Status is the record status after the step.
	Status string `yaml:"status,omitempty"`

	// Error is the expected error code (UNAUTHORIZED, ALREADY_TERMINAL,
	// COMPUTE_FAILED, NOT_FOUND), or empty for success.
	Error string `yaml:"error,omitempty"`

	// Artifacts is the expected artifact count.
	Artifacts *int `yaml:"artifacts,omitempty"`
}

// ListingEntry is one expected row of the final listing.
type ListingEntry struct {
	ID     string `yaml:"id"`
	Status string `yaml:"status,omitempty"`
}

// Step actions.
const (
	ActionSubmit  = "submit"
	ActionAdvance = "advance"
	ActionDrop    = "drop"
	ActionCorrupt = "corrupt"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		n := i + 1
		switch step.Action {
		case ActionSubmit:
			if step.Caller == "" {
				return fmt.Errorf("step %d: submit requires caller", n)
			}
			if step.Payload == "" {
				return fmt.Errorf("step %d: submit requires payload", n)
			}
		case ActionAdvance:
			if step.Caller == "" || step.Record == "" {
				return fmt.Errorf("step %d: advance requires caller and record", n)
			}
		case ActionDrop, ActionCorrupt:
			if step.Record == "" {
				return fmt.Errorf("step %d: %s requires record", n, step.Action)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", n, step.Action)
		}

		if step.Compute != nil && step.Action != ActionAdvance {
			return fmt.Errorf("step %d: compute is only valid on advance", n)
		}
		if step.Compute != nil && step.Compute.Error != "" && len(step.Compute.Artifacts) > 0 {
			return fmt.Errorf("step %d: compute cannot have both artifacts and error", n)
		}
		if step.Expect != nil && step.Expect.Status != "" {
			if _, err := record.ParseStatus(step.Expect.Status); err != nil {
				return fmt.Errorf("step %d: %w", n, err)
			}
		}
	}

	for i, entry := range s.Listing {
		if entry.ID == "" {
			return fmt.Errorf("listing[%d]: id is required", i)
		}
	}
	return nil
}
