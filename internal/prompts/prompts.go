// Package prompts renders the agent prompts from embedded templates.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed builtin/*.md
var builtin embed.FS

var templates = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(builtin, "builtin/*.md"))

// Template names.
const (
	PlanningSystem     = "planning_system.md"
	Planning           = "planning.md"
	ExecutionSystem    = "execution_system.md"
	Execution          = "execution.md"
	TestWriterSystem   = "test_writer_system.md"
	TestWriter         = "test_writer.md"
	TestsPlannerSystem = "tests_planner_system.md"
	TestsPlanner       = "tests_planner.md"
	TestsFixerSystem   = "tests_fixer_system.md"
	TestsFixer         = "tests_fixer.md"
	PreCommitSystem    = "precommit_fixer_system.md"
	PreCommit          = "precommit_fixer.md"
	ContentSystem      = "content_system.md"
	Content            = "content.md"
	ContentFromDiff    = "content_from_diff.md"
)

// Issue is the ticket data prompts can reference.
type Issue struct {
	Key         string
	Type        string
	Status      string
	Summary     string
	URL         string
	Description string
}

// Data is the template input. Templates use the fields they need.
type Data struct {
	Issue Issue
	// PlanFile is the artifact name the agent must write.
	PlanFile string
	// Plan is the artifact content handed to a later phase.
	Plan string
	// Diagnostic is the failing check's output.
	Diagnostic string
	Attempt    int
	MaxRetries int
	// Diff is the staged diff for generators that cannot inspect the workspace.
	Diff string
	// Files, Additions and Deletions summarize Diff.
	Files     []string
	Additions int
	Deletions int
	// Hooks are the configured pre-commit hook ids.
	Hooks []string
}

// Render executes the named template.
func Render(name string, data Data) (string, error) {
	data.Issue = withDefaults(data.Issue)
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func withDefaults(i Issue) Issue {
	if i.Type == "" {
		i.Type = "Unknown"
	}
	if i.Status == "" {
		i.Status = "Unknown"
	}
	if strings.TrimSpace(i.Description) == "" {
		i.Description = "No description provided"
	}
	return i
}
