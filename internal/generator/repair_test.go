package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasDocumentStart(t *testing.T) {
	assert.True(t, HasDocumentStart("<!DOCTYPE html><html></html>"))
	assert.True(t, HasDocumentStart("<html></html>"))
	assert.True(t, HasDocumentStart("  \n<div>x</div>"))
	assert.False(t, HasDocumentStart("Hello <b>world</b>"))
	assert.False(t, HasDocumentStart(""))
}

func TestRepairHTML_WrapsFragments(t *testing.T) {
	fragment := "Just some text with <b>markup</b>"
	got := RepairHTML(fragment)

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.Contains(t, got, fragment)
	assert.Contains(t, got, `<meta charset="UTF-8">`)
	assert.Contains(t, got, `name="viewport"`)
	assert.Contains(t, got, "<title>Generated App</title>")
}

func TestRepairHTML_LeavesDocumentsAlone(t *testing.T) {
	doc := "<html><body>ok</body></html>"
	assert.Equal(t, doc, RepairHTML(doc))
}

func TestRepairHTML_EmptyBecomesSkeleton(t *testing.T) {
	got := RepairHTML("")
	assert.True(t, HasDocumentStart(got))
	assert.NotEmpty(t, got)
}

func TestLengthWarnings(t *testing.T) {
	long := strings.Repeat("x", MinContentLength)
	assert.Empty(t, LengthWarnings(long, long))

	w := LengthWarnings("<p/>", "  "+long+"  ")
	assert.Equal(t, []string{"generated HTML seems too short"}, w)

	w = LengthWarnings(long, "# hi")
	assert.Equal(t, []string{"generated README seems too short"}, w)
}
