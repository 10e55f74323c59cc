package generator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"appforge/internal/models"
)

const (
	previewChars    = 1000
	csvPreviewLines = 3
)

var previewExtensions = []string{".md", ".txt", ".json", ".csv"}

// SummarizeAttachments renders one prompt line per saved attachment. Text-like
// files get a short preview, everything else reports its size. A file that
// cannot be read yields a placeholder line carrying the error.
func SummarizeAttachments(saved []models.SavedAttachment) []models.AttachmentSummary {
	summaries := make([]models.AttachmentSummary, 0, len(saved))
	for _, s := range saved {
		if !isPreviewable(s) {
			summaries = append(summaries, models.AttachmentSummary{
				Name: s.Name,
				Line: fmt.Sprintf("- %s (%s): %d bytes", s.Name, s.MIME, s.Size),
			})
			continue
		}
		preview, err := readPreview(s)
		if err != nil {
			summaries = append(summaries, models.AttachmentSummary{
				Name: s.Name,
				Line: fmt.Sprintf("- %s (%s): (could not read preview: %v)", s.Name, s.MIME, err),
				Err:  err,
			})
			continue
		}
		summaries = append(summaries, models.AttachmentSummary{
			Name: s.Name,
			Line: fmt.Sprintf("- %s (%s): preview: %s", s.Name, s.MIME, preview),
		})
	}
	return summaries
}

// RenderSummaries joins summary lines with newlines; no attachments yields "".
func RenderSummaries(summaries []models.AttachmentSummary) string {
	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		lines = append(lines, s.Line)
	}
	return strings.Join(lines, "\n")
}

func isPreviewable(s models.SavedAttachment) bool {
	if strings.HasPrefix(s.MIME, "text") {
		return true
	}
	for _, ext := range previewExtensions {
		if strings.HasSuffix(s.Name, ext) {
			return true
		}
	}
	return false
}

func readPreview(s models.SavedAttachment) (string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if strings.HasSuffix(s.Name, ".csv") {
		var lines []string
		sc := bufio.NewScanner(f)
		for len(lines) < csvPreviewLines && sc.Scan() {
			lines = append(lines, strings.TrimSpace(sc.Text()))
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return strings.Join(lines, `\n`), nil
	}

	// previewChars runes need at most 4 bytes each
	buf, err := io.ReadAll(io.LimitReader(f, previewChars*utf8.UTFMax))
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(buf), "")
	if utf8.RuneCountInString(text) > previewChars {
		text = string([]rune(text)[:previewChars])
	}
	return strings.ReplaceAll(text, "\n", `\n`), nil
}
