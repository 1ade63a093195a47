package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/portfolio-api/internal/model"
)

// ReadmeAPI is what the README handler needs from *service.ReadmeService.
type ReadmeAPI interface {
	Get(ctx context.Context, owner, repo string) (string, error)
}

type ReadmeHandler struct {
	readmes ReadmeAPI
	logger  *slog.Logger
}

func NewReadmeHandler(readmes ReadmeAPI, logger *slog.Logger) *ReadmeHandler {
	return &ReadmeHandler{readmes: readmes, logger: logger}
}

type readmeRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// HandleReadme returns a repository's README as markdown.
//
// HTTP: POST /api/readme  {"owner": "...", "repo": "..."}
func (h *ReadmeHandler) HandleReadme(w http.ResponseWriter, r *http.Request) {
	var req readmeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	content, err := h.readmes.Get(r.Context(), req.Owner, req.Repo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ReadmeResult{Content: &content})
}
