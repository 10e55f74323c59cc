package generator

import (
	"fmt"
	"strings"
)

// MinContentLength is the advisory lower bound for each generated file.
const MinContentLength = 50

var documentStarts = []string{"<", "<!DOCTYPE", "<html"}

// HasDocumentStart reports whether s, ignoring surrounding whitespace, starts
// like an HTML document.
func HasDocumentStart(s string) bool {
	s = strings.TrimSpace(s)
	for _, prefix := range documentStarts {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// RepairHTML wraps content lacking a document start in a minimal HTML5
// skeleton. Content that already looks like a document is returned as is.
func RepairHTML(code string) string {
	if HasDocumentStart(code) {
		return code
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generated App</title>
</head>
<body>
%s
</body>
</html>`, code)
}

// LengthWarnings returns advisory messages for files shorter than MinContentLength.
func LengthWarnings(html, readme string) []string {
	var warnings []string
	if len(strings.TrimSpace(html)) < MinContentLength {
		warnings = append(warnings, "generated HTML seems too short")
	}
	if len(strings.TrimSpace(readme)) < MinContentLength {
		warnings = append(warnings, "generated README seems too short")
	}
	return warnings
}
