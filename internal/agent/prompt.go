package agent

import (
	"fmt"

	"github.com/nugget/stratagem/internal/target"
)

const systemTemplate = `You are Stratagem, an elite Market Intelligence Analyst.
Target: %s
Goal: %s

Format your report cleanly with Markdown headers (##), bullet points, and bold text for key metrics.
Always end with a 'Strategic Verdict' section.`

// SystemPrompt builds the analyst instruction for spec. The name and
// objective are embedded verbatim.
func SystemPrompt(spec target.Spec) string {
	return fmt.Sprintf(systemTemplate, spec.Name, spec.Objective)
}

// UserPrompt builds the opening user turn for spec.
func UserPrompt(spec target.Spec) string {
	return fmt.Sprintf("Execute comprehensive analysis on %s. Focus area: %s", spec.Name, spec.Objective)
}
