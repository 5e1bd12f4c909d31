package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

type fakeTurns struct {
	out  contractx.TurnResult
	err  error
	args []string
}

func (f *fakeTurns) ProcessTurn(_ context.Context, threadID string, userID int64, utterance string) (contractx.TurnResult, error) {
	f.args = append(f.args, fmt.Sprintf("%s|%d|%s", threadID, userID, utterance))
	return f.out, f.err
}

func serve(t *testing.T, turns TurnProcessor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	NewHandler(turns, WithLogger(zerolog.Nop())).RegisterRoutes(e)

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPostTurnSuccess(t *testing.T) {
	t.Parallel()

	turns := &fakeTurns{out: contractx.TurnResult{
		ThreadID:  "t-1",
		SessionID: "s-1",
		Reply:     "I found 1 result.",
		TaskType:  contractx.TaskCatalogSearch,
		Payload:   &statex.Payload{Kind: statex.PayloadProducts, Items: []statex.Item{{Position: 1, ProductID: 1, Name: "Red Runner Shoes", PriceCents: 5999}}},
	}}

	rec := serve(t, turns, http.MethodPost, "/v1/threads/t-1/turns", `{"user_id":7,"utterance":"search for red shoes"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(turns.args) != 1 || turns.args[0] != "t-1|7|search for red shoes" {
		t.Fatalf("ProcessTurn args = %v", turns.args)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got["task_type"] != "catalog_search" || got["session_id"] != "s-1" {
		t.Fatalf("body = %v", got)
	}
	if _, ok := got["structured_payload"]; !ok {
		t.Fatalf("structured_payload missing: %v", got)
	}
}

func TestPostTurnErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"bad json", nil, `{"user_id":`, http.StatusBadRequest},
		{"invalid user", orchestrator.ErrInvalidUser, `{"user_id":0,"utterance":"hi"}`, http.StatusBadRequest},
		{"invalid message", orchestrator.ErrInvalidMessage, `{"user_id":1,"utterance":""}`, http.StatusBadRequest},
		{"owner", orchestrator.ErrThreadOwner, `{"user_id":2,"utterance":"hi"}`, http.StatusForbidden},
		{"gave up", fmt.Errorf("wait for thread t-1: %w", context.DeadlineExceeded), `{"user_id":1,"utterance":"hi"}`, http.StatusServiceUnavailable},
		{"internal", fmt.Errorf("compile: boom"), `{"user_id":1,"utterance":"hi"}`, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := serve(t, &fakeTurns{err: tc.err}, http.MethodPost, "/v1/threads/t-1/turns", tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeTurns{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
