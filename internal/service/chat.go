package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/catalog"
	"github.com/sakif/portfolio-api/internal/gemini"
	"github.com/sakif/portfolio-api/internal/model"
)

// Generator is the subset of *gemini.Client the chat proxy needs.
type Generator interface {
	Enabled() bool
	GenerateContent(ctx context.Context, req *gemini.Request) (string, error)
}

// ReadmeSource supplies README text for a detected project (*ReadmeService).
type ReadmeSource interface {
	Get(ctx context.Context, owner, repo string) (string, error)
}

const (
	historyWindow    = 8
	readmeExcerptMax = 6000

	chatTemperature     = 0.2
	chatMaxOutputTokens = 1000
)

// Prompt fragments read from the prompt directory on every call, so edits
// show up without a restart.
var promptFiles = []string{"llm_info.md", "llm_info_tech.md"}

// ChatRequest is one visitor question plus the widget's running history.
type ChatRequest struct {
	Query   string              `json:"query"`
	History []model.ChatMessage `json:"history"`
}

type ChatService struct {
	llm       Generator
	projects  *catalog.Catalog
	readmes   ReadmeSource
	promptDir string
	logger    *slog.Logger
}

func NewChatService(llm Generator, projects *catalog.Catalog, readmes ReadmeSource, promptDir string, logger *slog.Logger) *ChatService {
	if projects == nil {
		projects = catalog.New(nil)
	}
	return &ChatService{
		llm:       llm,
		projects:  projects,
		readmes:   readmes,
		promptDir: promptDir,
		logger:    logger,
	}
}

// Ask composes the system prompt and conversation and returns the model's
// answer text.
func (s *ChatService) Ask(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", apperror.ValidationFailed("query", "Query is required")
	}
	if s.llm == nil || !s.llm.Enabled() {
		return "", apperror.NotConfigured("LLM not configured (missing GEMINI_API_KEY)")
	}

	gen := &gemini.Request{
		SystemInstruction: &gemini.Content{
			Parts: []gemini.Part{{Text: s.systemPrompt(ctx, req)}},
		},
		Contents: conversation(req),
		GenerationConfig: gemini.GenerationConfig{
			Temperature:     chatTemperature,
			MaxOutputTokens: chatMaxOutputTokens,
		},
	}

	text, err := s.llm.GenerateContent(ctx, gen)
	if err != nil {
		var se *gemini.StatusError
		switch {
		case errors.As(err, &se):
			s.logger.Warn("llm rejected request", slog.Int("status", se.StatusCode))
			return "", apperror.Upstream(502, "LLM error: "+se.Body, err)
		case errors.Is(err, gemini.ErrUnavailable):
			return "", apperror.Upstream(503, "LLM temporarily unavailable", err)
		}
		s.logger.Error("llm request failed", slog.String("error", err.Error()))
		return "", apperror.Upstream(0, "LLM request failed", err)
	}
	return text, nil
}

// systemPrompt joins the non-empty prompt sections with blank lines.
func (s *ChatService) systemPrompt(ctx context.Context, req ChatRequest) string {
	var sections []string
	for _, name := range promptFiles {
		if text := s.readPrompt(name); text != "" {
			sections = append(sections, text)
		}
	}

	if p, ok := s.projects.Detect(req.Query, req.History); ok {
		sections = append(sections, fmt.Sprintf("Project Focus: %s\nRepo: %s/%s", p.Name, p.Owner, p.Repo))
		if excerpt := s.readmeExcerpt(ctx, p); excerpt != "" {
			sections = append(sections, "README excerpt:\n"+excerpt)
		}
	}
	return strings.Join(sections, "\n\n")
}

// readPrompt returns the trimmed file contents; a missing file reads as "".
func (s *ChatService) readPrompt(name string) string {
	raw, err := os.ReadFile(filepath.Join(s.promptDir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("reading prompt file", slog.String("file", name), slog.String("error", err.Error()))
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (s *ChatService) readmeExcerpt(ctx context.Context, p model.Project) string {
	if s.readmes == nil || p.Owner == "" || p.Repo == "" {
		return ""
	}
	content, err := s.readmes.Get(ctx, p.Owner, p.Repo)
	if err != nil {
		s.logger.Debug("readme for project focus unavailable",
			slog.String("repo", p.Owner+"/"+p.Repo),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return truncateRunes(strings.TrimSpace(content), readmeExcerptMax)
}

// conversation maps the last few history turns onto model roles and appends
// the query as the final user turn. Empty turns are skipped.
func conversation(req ChatRequest) []gemini.Content {
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	contents := make([]gemini.Content, 0, len(history)+1)
	for _, msg := range history {
		if msg.Text == "" {
			continue
		}
		role := "user"
		if msg.From == "bot" {
			role = "model"
		}
		contents = append(contents, gemini.Content{Role: role, Parts: []gemini.Part{{Text: msg.Text}}})
	}
	return append(contents, gemini.Content{Role: "user", Parts: []gemini.Part{{Text: req.Query}}})
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
