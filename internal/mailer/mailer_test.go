package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderContact(t *testing.T) {
	html, err := RenderContact(ContactView{
		Role:        "Recruiter",
		Name:        "Ada",
		Email:       "ada@example.com",
		LinkedInURL: "https://www.linkedin.com/in/ada",
		ReplyVia:    "Email",
		Message:     "Hello\nthere",
		UserAgent:   "Mozilla/5.0",
		Timestamp:   "1714550400000",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>Role:</strong> Recruiter")
	assert.Contains(t, html, "<strong>Name:</strong> Ada")
	assert.Contains(t, html, `<a href="https://www.linkedin.com/in/ada">`)
	assert.Contains(t, html, "Hello\nthere")
	assert.Contains(t, html, "Timestamp: 1714550400000")
}

func TestRenderContact_Placeholders(t *testing.T) {
	html, err := RenderContact(ContactView{Role: "General", ReplyVia: "LinkedIn", Message: "hi"})
	require.NoError(t, err)

	assert.Contains(t, html, "<strong>Name:</strong> —")
	assert.Contains(t, html, "<strong>Email:</strong> —")
	assert.Contains(t, html, "<strong>LinkedIn:</strong> —")
	assert.Contains(t, html, "User-Agent: —")
	assert.NotContains(t, html, "<a href")
}

func TestRenderContact_EscapesInput(t *testing.T) {
	html, err := RenderContact(ContactView{
		Name:        `<script>alert("x")</script>`,
		LinkedInURL: "javascript:alert(1)",
		Message:     "<b>bold</b>",
	})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "&lt;b&gt;bold&lt;/b&gt;")
	assert.False(t, strings.Contains(html, `href="javascript:`), "unsafe URL must be neutralised")
}
