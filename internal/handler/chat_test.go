package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio-api/internal/apperror"
	"github.com/sakif/portfolio-api/internal/handler"
	"github.com/sakif/portfolio-api/internal/service"
)

type MockChat struct {
	CapturedReq service.ChatRequest
	Answer      string
	ReturnErr   error
}

func (m *MockChat) Ask(ctx context.Context, req service.ChatRequest) (string, error) {
	m.CapturedReq = req
	return m.Answer, m.ReturnErr
}

func TestChatHandler_HandleChat(t *testing.T) {
	t.Run("answer", func(t *testing.T) {
		m := &MockChat{Answer: "Hi!"}
		h := handler.NewChatHandler(m, testLogger())

		rr := postJSON(t, h.HandleChat, "/api/llm",
			`{"query":"hello","history":[{"from":"bot","text":"welcome"}]}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ok":true,"content":"Hi!"}`, rr.Body.String())
		assert.Equal(t, "hello", m.CapturedReq.Query)
		require.Len(t, m.CapturedReq.History, 1)
		assert.Equal(t, "bot", m.CapturedReq.History[0].From)
	})

	t.Run("llm error", func(t *testing.T) {
		m := &MockChat{ReturnErr: apperror.Upstream(502, `LLM error: {"error":"quota"}`, nil)}
		h := handler.NewChatHandler(m, testLogger())

		rr := postJSON(t, h.HandleChat, "/api/llm", `{"query":"hello"}`)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		res := decodeError(t, rr)
		assert.False(t, res.OK)
		assert.Equal(t, `LLM error: {"error":"quota"}`, res.Error)
	})

	t.Run("not configured", func(t *testing.T) {
		m := &MockChat{ReturnErr: apperror.NotConfigured("LLM not configured (missing GEMINI_API_KEY)")}
		h := handler.NewChatHandler(m, testLogger())

		rr := postJSON(t, h.HandleChat, "/api/llm", `{"query":"hello"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "LLM not configured (missing GEMINI_API_KEY)", decodeError(t, rr).Error)
	})
}
