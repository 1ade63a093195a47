package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/portfolio-api/internal/model"
)

// ContactAPI is what the contact handler needs from *service.ContactService.
type ContactAPI interface {
	Send(ctx context.Context, msg model.ContactMessage) (string, error)
}

type ContactHandler struct {
	contact ContactAPI
	logger  *slog.Logger
}

func NewContactHandler(contact ContactAPI, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contact: contact, logger: logger}
}

// HandleContact relays a contact-form submission by email.
//
// HTTP: POST /api/contact
func (h *ContactHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	var msg model.ContactMessage
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, h.logger, err)
		return
	}

	id, err := h.contact.Send(r.Context(), msg)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "Email sent successfully",
		"data":    map[string]string{"id": id},
	})
}
