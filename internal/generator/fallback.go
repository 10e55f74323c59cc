package generator

import (
	"fmt"
	"html"
	"strings"
)

// FallbackReadme renders the README used whenever the model does not supply one.
func FallbackReadme(brief string, checks []string, attachmentsMeta string, round int) string {
	return fmt.Sprintf(`# Auto-generated README (Round %d)

**Project brief:** %s

**Attachments:**
%s

**Checks to meet:**
%s

## Setup
1. Open `+"`index.html`"+` in a browser.
2. No build steps required.

## Notes
This README was generated as a fallback (the model did not return an explicit README).
`, round, brief, attachmentsMeta, strings.Join(checks, "\n"))
}

// FallbackHTML is the page substituted when the completion call fails.
func FallbackHTML(brief string) string {
	return fmt.Sprintf(`<html>
  <head><title>Fallback App</title></head>
  <body>
    <h1>Hello (fallback)</h1>
    <p>This app was generated as a fallback because the completion service failed. Brief: %s</p>
  </body>
</html>`, html.EscapeString(brief))
}

// FallbackResponse imitates a well-formed model response built from the templates.
func FallbackResponse(brief string, checks []string, attachmentsMeta string, round int) string {
	return FallbackHTML(brief) + "\n\n" + Separator + "\n" + FallbackReadme(brief, checks, attachmentsMeta, round)
}
