package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/zhouzirui/mindchat/backend/internal/analysis/crisis"
	"github.com/zhouzirui/mindchat/backend/internal/model/chat"
	"github.com/zhouzirui/mindchat/backend/internal/model/mode"
	"github.com/zhouzirui/mindchat/backend/internal/service/turn"
)

var (
	ErrModeNotFound      = errors.New("mode not found")
	ErrSubmissionPending = errors.New("a message is already being processed for this session")
)

// Exchange is the outcome of one submit.
type Exchange struct {
	Session  chat.Session
	History  chat.History
	Appended []chat.Turn
	Crisis   crisis.Assessment
}

// Service owns session lifecycles and runs submissions against them.
type Service struct {
	store     Store
	modes     mode.Store
	processor *turn.Processor

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewService wires the session store, the mode catalogue and the turn processor.
func NewService(store Store, modes mode.Store, processor *turn.Processor) *Service {
	return &Service{
		store:     store,
		modes:     modes,
		processor: processor,
		pending:   make(map[string]struct{}),
	}
}

// Modes exposes the mode catalogue.
func (s *Service) Modes() mode.Store {
	return s.modes
}

// CreateSession provisions an anonymous session. An empty modeID selects the
// default mode.
func (s *Service) CreateSession(ctx context.Context, modeID string) (chat.Session, error) {
	if modeID == "" {
		modeID = mode.DefaultID
	}
	if _, ok := s.modes.FindByID(modeID); !ok {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrModeNotFound, modeID)
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		ModeID:    modeID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return chat.Session{}, err
	}

	log.Info("[chat] session created", "session", session.ID, "mode", modeID)
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.Get(ctx, sessionID)
}

// LoadHistory returns the session's transcript.
func (s *Service) LoadHistory(ctx context.Context, sessionID string) (chat.History, error) {
	return s.store.LoadHistory(ctx, sessionID)
}

// EndSession destroys the session and its history.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	log.Info("[chat] session ended", "session", sessionID)
	return nil
}

// Submit runs one user message through the turn processor and persists the
// result. Only one submission per session may be in flight.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (Exchange, error) {
	sub, err := s.Reserve(ctx, sessionID)
	if err != nil {
		return Exchange{}, err
	}
	defer sub.Release()
	return sub.Submit(ctx, text)
}

// Submission holds a session's single submit slot between Reserve and
// Release.
type Submission struct {
	svc     *Service
	session chat.Session
	once    sync.Once
}

// Reserve claims the submit slot of an existing session. It fails with
// ErrSubmissionPending while another submission holds the slot and with
// ErrSessionNotFound for unknown sessions. Callers must Release the slot.
func (s *Service) Reserve(ctx context.Context, sessionID string) (*Submission, error) {
	if !s.acquire(sessionID) {
		return nil, ErrSubmissionPending
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.release(sessionID)
		return nil, err
	}
	return &Submission{svc: s, session: session}, nil
}

// Release frees the slot. It is safe to call more than once.
func (sub *Submission) Release() {
	sub.once.Do(func() { sub.svc.release(sub.session.ID) })
}

// Submit runs text against the reserved session.
func (sub *Submission) Submit(ctx context.Context, text string) (Exchange, error) {
	s, session := sub.svc, sub.session

	history, err := s.store.LoadHistory(ctx, session.ID)
	if err != nil {
		return Exchange{}, err
	}

	next := s.processorFor(session).Submit(ctx, history, text)
	appended := next.Since(history.Len())
	if len(appended) == 0 {
		return Exchange{Session: session, History: history, Crisis: crisis.Assessment{Level: crisis.Low}}, nil
	}

	if err := s.store.SaveHistory(ctx, session.ID, next); err != nil {
		return Exchange{}, fmt.Errorf("save history: %w", err)
	}

	assessment := crisis.Detect(text)
	if assessment.Found {
		log.Warn("[chat] crisis language detected", "session", session.ID, "level", assessment.Level, "matches", len(assessment.Matches))
	}

	return Exchange{
		Session:  session,
		History:  next,
		Appended: appended,
		Crisis:   assessment,
	}, nil
}

// Processor returns the processor configured for modeID, falling back to the
// default mode.
func (s *Service) Processor(modeID string) *turn.Processor {
	return s.processorFor(chat.Session{ModeID: modeID})
}

func (s *Service) processorFor(session chat.Session) *turn.Processor {
	m, ok := s.modes.FindByID(session.ModeID)
	if !ok {
		return s.processor
	}
	return s.processor.WithPreamble(m.Preamble)
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[sessionID]; busy {
		return false
	}
	s.pending[sessionID] = struct{}{}
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	delete(s.pending, sessionID)
	s.mu.Unlock()
}
