package models

// Attachment is a file supplied inline with a brief. URL is expected to be a
// data URI of the form data:<mime>;base64,<payload>.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SavedAttachment describes an attachment that was decoded and written to disk.
type SavedAttachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
}

// AttachmentResult is the outcome of decoding a single attachment.
// Exactly one of Saved, Skipped or Err describes what happened.
type AttachmentResult struct {
	Name    string
	Saved   *SavedAttachment
	Skipped bool
	Err     error
}

func (r AttachmentResult) OK() bool {
	return r.Saved != nil && r.Err == nil
}

// AttachmentSummary is one rendered line of the attachment block of a prompt.
type AttachmentSummary struct {
	Name string
	Line string
	Err  error
}
