package generator

import (
	"strings"
)

const codeFence = "```"

// fenceLanguages are the info strings models put after an opening fence for
// the two files we ask for. Anything else on that line is kept as content.
var fenceLanguages = map[string]bool{
	"html": true, "htm": true, "xhtml": true,
	"markdown": true, "md": true,
	"text": true, "txt": true, "plaintext": true,
}

// SplitResponse divides raw model text at the first Separator. Each half is
// code-fence stripped and trimmed. found reports whether the separator was
// present; without it the whole text is the code part and readme is empty.
func SplitResponse(text string) (code, readme string, found bool) {
	before, after, found := strings.Cut(text, Separator)
	if !found {
		return StripCodeFence(text), "", false
	}
	return StripCodeFence(strings.TrimSpace(before)), StripCodeFence(strings.TrimSpace(after)), true
}

// StripCodeFence returns the body of the first fenced block when s contains a
// fence, otherwise s trimmed. The opening fence line is dropped only when it
// holds nothing but an html, markdown or text tag, so "```html" never leaks
// into index.html while "```Hello\nworld```" keeps both lines.
func StripCodeFence(s string) string {
	parts := strings.Split(s, codeFence)
	if len(parts) < 2 {
		return strings.TrimSpace(s)
	}
	body := parts[1]
	if first, rest, ok := strings.Cut(body, "\n"); ok && fenceLanguages[strings.ToLower(strings.TrimSpace(first))] {
		body = rest
	}
	return strings.TrimSpace(body)
}
