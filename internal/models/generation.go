package models

const (
	IndexFile  = "index.html"
	ReadmeFile = "README.md"
)

// GenerationRequest is everything needed to produce one round of an app.
// PrevReadme is only consulted when Round is 2.
type GenerationRequest struct {
	Brief       string       `json:"brief"`
	Attachments []Attachment `json:"attachments"`
	Checks      []string     `json:"checks"`
	Round       int          `json:"round"`
	PrevReadme  string       `json:"prev_readme,omitempty"`
}

// GenerationResult maps file names to full file contents. Both index.html and
// README.md are always present and non-empty.
type GenerationResult struct {
	Files       map[string]string `json:"files"`
	Attachments []SavedAttachment `json:"attachments"`

	// Fallback is set when the model output was replaced by the built-in template.
	Fallback bool     `json:"fallback"`
	Warnings []string `json:"warnings,omitempty"`

	AttachmentResults []AttachmentResult  `json:"-"`
	Summaries         []AttachmentSummary `json:"-"`
}

func (r *GenerationResult) Index() string {
	return r.Files[IndexFile]
}

func (r *GenerationResult) Readme() string {
	return r.Files[ReadmeFile]
}

// Failures returns the attachments that could not be decoded or previewed.
func (r *GenerationResult) Failures() []AttachmentResult {
	var failed []AttachmentResult
	for _, res := range r.AttachmentResults {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	for _, s := range r.Summaries {
		if s.Err != nil {
			failed = append(failed, AttachmentResult{Name: s.Name, Err: s.Err})
		}
	}
	return failed
}
