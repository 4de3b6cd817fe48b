package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/splitcore/internal/cmdqueue"
)

// Scenario is a scripted run against a core thread.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Policy is the producer queue policy: "nosync" (default) or "sync".
	Policy string `yaml:"policy,omitempty"`

	Steps []Step `yaml:"steps"`

	// Expect is checked against the run log. Nil lists are not checked.
	Expect Expect `yaml:"expect,omitempty"`
}

// Step is one scenario action. Exactly one action field is set.
type Step struct {
	Queue       string `yaml:"queue,omitempty"`
	QueueReturn string `yaml:"queue_return,omitempty"`

	// Value resolves a queue_return op explicitly. Without it the op
	// resolves to nil after the command runs.
	Value any `yaml:"value,omitempty"`

	// Notify requests a completion notification with this callback id.
	Notify uint32 `yaml:"notify,omitempty"`

	Cancel    bool        `yaml:"cancel,omitempty"`
	Submit    *SubmitStep `yaml:"submit,omitempty"`
	Wait      bool        `yaml:"wait,omitempty"`
	Create    *CreateStep `yaml:"create,omitempty"`
	MarkDirty *DirtyStep  `yaml:"mark_dirty,omitempty"`
	Sync      bool        `yaml:"sync,omitempty"`
	Render    string      `yaml:"render,omitempty"`
	Destroy   string      `yaml:"destroy,omitempty"`
}

// SubmitStep flushes the producer queue.
type SubmitStep struct {
	Block bool `yaml:"block"`
}

// CreateStep creates a resource.
type CreateStep struct {
	Name string `yaml:"name"`

	// Kind is texture, mesh or camera.
	Kind string `yaml:"kind"`

	Width    int `yaml:"width,omitempty"`
	Height   int `yaml:"height,omitempty"`
	Vertices int `yaml:"vertices,omitempty"`
	Indices  int `yaml:"indices,omitempty"`

	// Target names the texture a camera renders into.
	Target string `yaml:"target,omitempty"`
}

// DirtyStep marks an object dirty. Zero flags mean all bits.
type DirtyStep struct {
	Object string `yaml:"object"`
	Flags  uint32 `yaml:"flags,omitempty"`
}

// Expect lists what the core side must have observed.
type Expect struct {
	Executed []string       `yaml:"executed,omitempty"`
	Notified []uint32       `yaml:"notified,omitempty"`
	Resolved []string       `yaml:"resolved,omitempty"`
	Pending  []string       `yaml:"pending,omitempty"`
	Calls    []string       `yaml:"calls,omitempty"`
	Values   map[string]any `yaml:"values,omitempty"`
	Synced   *int           `yaml:"synced,omitempty"`
	Live     *int           `yaml:"live,omitempty"`
}

// Resource kinds accepted by create steps.
const (
	KindTexture = "texture"
	KindMesh    = "mesh"
	KindCamera  = "camera"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// QueuePolicy maps the policy name to a cmdqueue.Policy.
func (s *Scenario) QueuePolicy() cmdqueue.Policy {
	if s.Policy == "sync" {
		return cmdqueue.Sync
	}
	return cmdqueue.NoSync
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Policy {
	case "", "nosync", "sync":
	default:
		return fmt.Errorf("unknown policy %q (want nosync or sync)", s.Policy)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	objects := make(map[string]string)
	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("steps[%d]: want exactly one action, got %d", i, n)
		}

		switch {
		case step.QueueReturn != "":
			if labels[step.QueueReturn] {
				return fmt.Errorf("steps[%d]: duplicate return label %q", i, step.QueueReturn)
			}
			labels[step.QueueReturn] = true
		case step.Queue == "" && (step.Value != nil || step.Notify != 0):
			return fmt.Errorf("steps[%d]: value and notify only apply to queue steps", i)
		}
		if step.Value != nil && step.QueueReturn == "" {
			return fmt.Errorf("steps[%d]: value only applies to queue_return", i)
		}

		if c := step.Create; c != nil {
			if err := validateCreate(c, objects); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
			objects[c.Name] = c.Kind
		}
	}
	return nil
}

func validateCreate(c *CreateStep, objects map[string]string) error {
	if c.Name == "" {
		return fmt.Errorf("create: name is required")
	}
	if _, ok := objects[c.Name]; ok {
		return fmt.Errorf("create: duplicate object %q", c.Name)
	}
	switch c.Kind {
	case KindTexture, KindMesh:
	case KindCamera:
		if c.Target != "" && objects[c.Target] != KindTexture {
			return fmt.Errorf("create: camera target %q is not a texture", c.Target)
		}
	default:
		return fmt.Errorf("create: unknown kind %q", c.Kind)
	}
	return nil
}

// actions counts the action fields set on a step.
func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Queue != "",
		s.QueueReturn != "",
		s.Cancel,
		s.Submit != nil,
		s.Wait,
		s.Create != nil,
		s.MarkDirty != nil,
		s.Sync,
		s.Render != "",
		s.Destroy != "",
	} {
		if set {
			n++
		}
	}
	return n
}
