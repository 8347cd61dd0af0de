package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/internal/service/assistant"
	chatservice "github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

type replyClient string

func (c replyClient) Reply(context.Context, assistant.Request) (string, error) {
	return string(c), nil
}

func setup(t *testing.T) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	svc := chatservice.NewService(chatservice.NewMemoryStore(time.Hour), mode.NewMemoryStore(mode.Seed()), turn.NewProcessor(replyClient("Hello")))
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r, svc
}

func TestStreamEmitsTurnsInOrder(t *testing.T) {
	r, svc := setup(t)
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/session/"+session.ID+"/stream", strings.NewReader(`{"message":"I feel hopeless"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	body := resp.Body.String()
	assert.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))

	start := strings.Index(body, "event: start")
	user := strings.Index(body, `"role":"user"`)
	reply := strings.Index(body, `"role":"assistant"`)
	crisisAt := strings.Index(body, "event: crisis")
	end := strings.Index(body, "event: end")
	require.True(t, start >= 0 && user > start && reply > user && crisisAt > reply && end > crisisAt, body)
	assert.Contains(t, body, `"shareLink":"https://wa.me/?text=Hello"`)
}

func TestStreamUnknownSession(t *testing.T) {
	r, _ := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/session/missing/stream", strings.NewReader(`{"message":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestStreamInvalidBody(t *testing.T) {
	r, svc := setup(t)
	session, _ := svc.CreateSession(context.Background(), "")

	req := httptest.NewRequest(http.MethodPost, "/session/"+session.ID+"/stream", strings.NewReader(`nope`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStreamPendingSubmissionIsConflict(t *testing.T) {
	r, svc := setup(t)
	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	held, err := svc.Reserve(context.Background(), session.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/session/"+session.ID+"/stream", strings.NewReader(`{"message":"hi"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.NotEqual(t, "text/event-stream", resp.Header().Get("Content-Type"))

	held.Release()

	req = httptest.NewRequest(http.MethodPost, "/session/"+session.ID+"/stream", strings.NewReader(`{"message":"hi"}`))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "event: end")
}
