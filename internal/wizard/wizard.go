// Package wizard collects batch scaffolding input through an interactive
// terminal form.
package wizard

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// BatchSpec holds all fields collected during the interactive wizard.
type BatchSpec struct {
	ID             string
	Name           string
	Description    string
	UserMessage    string
	ReferenceReply string
	Attempts       int
}

var batchIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateID checks that a batch ID is non-empty kebab-case.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("batch id is required")
	}
	if !batchIDPattern.MatchString(id) {
		return fmt.Errorf("batch id must be kebab-case (lowercase letters, digits, hyphens)")
	}
	return nil
}

const batchYAMLTemplate = `id: {{ .ID }}
description: {{ .Description }}
details:
  name: {{ .Name }}
scenarios:
  - id: {{ .ID }}-scenario-1
    name: {{ .Name }}
    interactions:
      - id: opening
        interaction_type: opening
        user_message: {{ printf "%q" .UserMessage }}
        reference_reply: {{ printf "%q" .ReferenceReply }}
`

// RunBatchWizard runs an interactive huh form to collect batch metadata.
// If initialID is non-empty, it pre-populates the ID field.
func RunBatchWizard(in io.Reader, out io.Writer, initialID string) (*BatchSpec, error) {
	var (
		id             = initialID
		name           string
		description    string
		userMessage    string
		referenceReply string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch ID").
				Description("A kebab-case identifier for this test batch").
				Placeholder("my-agent-batch").
				Value(&id).
				Validate(func(s string) error {
					return ValidateID(strings.TrimSpace(s))
				}),
			huh.NewInput().
				Title("Batch name").
				Description("A human-readable name").
				Placeholder("My agent regression batch").
				Value(&name),
			huh.NewInput().
				Title("Description").
				Description("What does this batch test?").
				Placeholder("Describe the conversation under test").
				Value(&description),
			huh.NewInput().
				Title("Opening user message").
				Description("The first message sent to the agent").
				Placeholder("Hello, I need help with ...").
				Value(&userMessage).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an opening message is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Reference reply").
				Description("The ideal agent reply the judges compare against").
				Placeholder("Sure, here is how ...").
				Value(&referenceReply).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a reference reply is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		name = id
	}
	return &BatchSpec{
		ID:             strings.TrimSpace(id),
		Name:           strings.TrimSpace(name),
		Description:    strings.TrimSpace(description),
		UserMessage:    strings.TrimSpace(userMessage),
		ReferenceReply: strings.TrimSpace(referenceReply),
	}, nil
}

// GenerateBatchYAML renders a batch definition file from the given spec.
func GenerateBatchYAML(spec *BatchSpec) (string, error) {
	tmpl, err := template.New("batchyaml").Parse(batchYAMLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
