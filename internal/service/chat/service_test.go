package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	modelchat "github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/internal/service/assistant"
	chat "github.com/zhouzirui/mindchat/backend/internal/service/chat"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

type echoClient struct {
	started chan struct{}
	release chan struct{}
	last    assistant.Request
}

func (c *echoClient) Reply(ctx context.Context, req assistant.Request) (string, error) {
	c.last = req
	if c.started != nil {
		c.started <- struct{}{}
		<-c.release
	}
	return "echo: " + req.Message, nil
}

func newService(client assistant.Client) *chat.Service {
	return chat.NewService(chat.NewMemoryStore(time.Hour), mode.NewMemoryStore(mode.Seed()), turn.NewProcessor(client))
}

func TestServiceGetSession(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "cbt")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.ModeID != "cbt" {
		t.Fatalf("unexpected mode ID: got %s", got.ModeID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService(&echoClient{})

	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceCreateSessionDefaultsMode(t *testing.T) {
	svc := newService(&echoClient{})

	session, err := svc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.ModeID != mode.DefaultID {
		t.Fatalf("expected default mode, got %s", session.ModeID)
	}
}

func TestServiceCreateSessionUnknownMode(t *testing.T) {
	svc := newService(&echoClient{})

	if _, err := svc.CreateSession(context.Background(), "astrology"); !errors.Is(err, chat.ErrModeNotFound) {
		t.Fatalf("expected ErrModeNotFound, got %v", err)
	}
}

func TestServiceSubmitPersistsExchange(t *testing.T) {
	client := &echoClient{}
	svc := newService(client)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "mindfulness")

	ex, err := svc.Submit(ctx, session.ID, "hello")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(ex.Appended) != 2 {
		t.Fatalf("expected two appended turns, got %d", len(ex.Appended))
	}

	ex, err = svc.Submit(ctx, session.ID, "again")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	history, err := svc.LoadHistory(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadHistory err: %v", err)
	}
	want := []modelchat.Turn{
		modelchat.UserTurn("hello"),
		modelchat.AssistantTurn("echo: hello"),
		modelchat.UserTurn("again"),
		modelchat.AssistantTurn("echo: again"),
	}
	got := history.Turns()
	if len(got) != len(want) {
		t.Fatalf("unexpected history length %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d: got %+v want %+v", i, got[i], want[i])
		}
	}

	m, _ := mode.NewMemoryStore(mode.Seed()).FindByID("mindfulness")
	if client.last.Preamble != m.Preamble {
		t.Fatalf("expected mindfulness preamble, got %q", client.last.Preamble)
	}
}

func TestServiceSubmitBlankIsNoOp(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	ex, err := svc.Submit(ctx, session.ID, "  ")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(ex.Appended) != 0 || ex.History.Len() != 0 {
		t.Fatalf("expected no change, got %d appended", len(ex.Appended))
	}
}

func TestServiceSubmitReportsCrisis(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	ex, err := svc.Submit(ctx, session.ID, "I feel worthless and hopeless")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if !ex.Crisis.Found || ex.Crisis.Level != crisis.High {
		t.Fatalf("expected high crisis assessment, got %+v", ex.Crisis)
	}
}

func TestServiceSubmitUnknownSession(t *testing.T) {
	svc := newService(&echoClient{})

	if _, err := svc.Submit(context.Background(), "missing", "hi"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceSubmitRejectsConcurrentSubmission(t *testing.T) {
	client := &echoClient{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(client)
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, session.ID, "first")
		done <- err
	}()
	<-client.started

	if _, err := svc.Submit(ctx, session.ID, "second"); !errors.Is(err, chat.ErrSubmissionPending) {
		t.Fatalf("expected ErrSubmissionPending, got %v", err)
	}

	close(client.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit err: %v", err)
	}
}

func TestServiceEndSessionDestroysHistory(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")
	_, _ = svc.Submit(ctx, session.ID, "hi")

	if err := svc.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession err: %v", err)
	}
	if _, err := svc.LoadHistory(ctx, session.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected history to be gone, got %v", err)
	}
	if err := svc.EndSession(ctx, session.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected second EndSession to fail, got %v", err)
	}
}

func TestServiceReserveHoldsSlotUntilRelease(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()
	session, _ := svc.CreateSession(ctx, "")

	sub, err := svc.Reserve(ctx, session.ID)
	if err != nil {
		t.Fatalf("Reserve err: %v", err)
	}
	if _, err := svc.Reserve(ctx, session.ID); !errors.Is(err, chat.ErrSubmissionPending) {
		t.Fatalf("expected ErrSubmissionPending, got %v", err)
	}

	ex, err := sub.Submit(ctx, "hi")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if len(ex.Appended) != 2 {
		t.Fatalf("expected 2 appended turns, got %d", len(ex.Appended))
	}

	sub.Release()
	sub.Release()

	if _, err := svc.Submit(ctx, session.ID, "again"); err != nil {
		t.Fatalf("Submit after release err: %v", err)
	}
}

func TestServiceReserveUnknownSessionFreesSlot(t *testing.T) {
	svc := newService(&echoClient{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Reserve(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
			t.Fatalf("attempt %d: expected ErrSessionNotFound, got %v", i, err)
		}
	}
}
