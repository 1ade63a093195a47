package model

// ReadmeResult is the wire shape of a README lookup. Exactly one of Content
// and Error is set.
type ReadmeResult struct {
	Content *string `json:"content,omitempty"`
	Error   string  `json:"error,omitempty"`
}
