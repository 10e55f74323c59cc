package generator

import (
	"strconv"
	"strings"
)

// Separator divides the HTML document from the README in a model response.
const Separator = "---README.md---"

const SystemPrompt = "You are a helpful coding assistant that outputs runnable web apps."

// PromptInput carries the values interpolated into the user prompt.
type PromptInput struct {
	Brief           string
	Round           int
	PrevReadme      string
	AttachmentsMeta string
	Checks          []string
}

const outputRules = `### Output format rules:
1. Produce a complete single-file web application that satisfies the brief requirements.
2. Output must contain **exactly two parts**:
   - First part: Complete index.html code (including DOCTYPE, html, head, body tags)
   - Second part: README.md content (starts after a line containing exactly: ` + Separator + `)
3. The index.html must be a SINGLE FILE containing:
   - All HTML structure
   - All CSS styles (inline in <style> tags or inline styles)
   - All JavaScript logic (inline in <script> tags)
   - Complete functionality to fulfill the brief requirements
4. README.md must include:
   - Overview of the application
   - Setup instructions (just open index.html in browser)
   - Usage instructions
   - If Round 2, describe improvements made from previous version.
5. Do not include any commentary outside the HTML code or README content.
6. The index.html must be completely self-contained - no external dependencies except CDN links if specifically requested.
7. Use the separator line "` + Separator + `" exactly as shown to separate the two parts.
`

// ComposePrompt builds the user instruction block. Values are substituted
// literally and never validated.
func ComposePrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("\nYou are a professional web developer assistant.\n\n")

	b.WriteString("### Round\n")
	b.WriteString(strconv.Itoa(in.Round))
	b.WriteString("\n\n### Task\n")
	b.WriteString(in.Brief)
	b.WriteString("\n\n")

	if in.Round == 2 && in.PrevReadme != "" {
		b.WriteString("### Previous README.md:\n")
		b.WriteString(in.PrevReadme)
		b.WriteString("\n\nRevise and enhance this project according to the new brief below.\n\n")
	}

	b.WriteString("### Attachments (if any)\n")
	b.WriteString(in.AttachmentsMeta)
	b.WriteString("\n\n### Evaluation checks\n")
	b.WriteString(renderChecks(in.Checks))
	b.WriteString("\n\n")
	b.WriteString(outputRules)
	return b.String()
}

func renderChecks(checks []string) string {
	if len(checks) == 0 {
		return "(none)"
	}
	lines := make([]string, len(checks))
	for i, c := range checks {
		lines[i] = "- " + c
	}
	return strings.Join(lines, "\n")
}
