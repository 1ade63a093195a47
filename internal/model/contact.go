package model

// ContactMessage is a visitor's submission from the contact form.
type ContactMessage struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	LinkedInURL string      `json:"linkedinUrl"`
	Role        string      `json:"role"`
	Subject     string      `json:"subject"`
	Message     string      `json:"message"`
	ReplyVia    string      `json:"replyVia"`
	Meta        ContactMeta `json:"meta"`
}

// ContactMeta is browser-supplied context attached to a submission.
type ContactMeta struct {
	UserAgent string `json:"ua"`
	Timestamp any    `json:"ts"` // the SPA sends either a number or a string
}
