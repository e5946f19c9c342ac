package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-player-service/internal/domain"
	"quiz-player-service/internal/quiz"
)

// ErrSubjectSwitched is returned when a bank load finishes after the client
// has already navigated to a different subject; the stale result is
// discarded rather than installed.
var ErrSubjectSwitched = errors.New("subject switched while loading")

// timeNow is swapped out in tests for deterministic history timestamps.
var timeNow = time.Now

// BankRepository provides (usually cached) question banks by subject.
type BankRepository interface {
	GetBank(ctx context.Context, subject string) (domain.Bank, error)
}

// SnapshotStore persists session snapshots per {client, subject}. A missing
// or unreadable snapshot loads as (nil, nil); write failures are surfaced so
// the service can log them, but they never roll back in-memory state.
type SnapshotStore interface {
	Load(ctx context.Context, clientID, subject string) (*domain.Snapshot, error)
	Save(ctx context.Context, clientID, subject string, snap domain.Snapshot) error
	Delete(ctx context.Context, clientID, subject string) error
}

// BookmarkStore persists bookmarked positions per {client, subject},
// independent of the session lifecycle.
type BookmarkStore interface {
	Load(ctx context.Context, clientID, subject string) ([]int, error)
	Save(ctx context.Context, clientID, subject string, positions []int) error
}

// HistoryStore records finished attempts per client.
type HistoryStore interface {
	Append(ctx context.Context, clientID string, entry domain.HistoryEntry) error
	List(ctx context.Context, clientID string, limit int) ([]domain.HistoryEntry, error)
}

// EventSink receives fire-and-forget analytics events. Implementations must
// never block session flow on delivery.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event)
}

// Options configures session behavior for every client of one service.
type Options struct {
	Shuffle      quiz.Shuffle
	Subjects     []domain.Subject
	HistoryLimit int
}

// PlayerService owns the active sessions and wires the state machine to its
// collaborators: bank loading, snapshot/bookmark persistence, attempt
// history, and the analytics relay. One instance serves all clients.
type PlayerService struct {
	banks     BankRepository
	snapshots SnapshotStore
	bookmarks BookmarkStore
	history   HistoryStore
	events    EventSink
	log       *zap.Logger
	opts      Options

	mu     sync.Mutex
	active map[string]*playerState
}

type playerState struct {
	subject string
	session *quiz.Session
	// review sessions are derived sub-sessions over the wrong answers; they
	// are never persisted so the real subject snapshot survives them.
	review bool
}

func NewPlayerService(banks BankRepository, snapshots SnapshotStore, bookmarks BookmarkStore, history HistoryStore, events EventSink, log *zap.Logger, opts Options) *PlayerService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &PlayerService{
		banks:     banks,
		snapshots: snapshots,
		bookmarks: bookmarks,
		history:   history,
		events:    events,
		log:       log,
		opts:      opts,
		active:    make(map[string]*playerState),
	}
}

// Subjects returns the configured catalog.
func (s *PlayerService) Subjects() []domain.Subject {
	return append([]domain.Subject(nil), s.opts.Subjects...)
}

// resolveSubject maps a catalog ID onto its resource name. With an empty
// catalog any opaque identifier is accepted as-is.
func (s *PlayerService) resolveSubject(subject string) (string, error) {
	if len(s.opts.Subjects) == 0 {
		if subject == "" {
			return "", domain.ErrUnknownSubject
		}
		return subject, nil
	}
	for _, entry := range s.opts.Subjects {
		if entry.ID == subject || entry.File == subject {
			return entry.File, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnknownSubject, subject)
}

// StartSession loads the subject's bank and begins (or resumes) a session
// for the client. A persisted snapshot matching the bank is restored;
// anything else starts fresh. A load that completes after the client has
// moved on to another subject is discarded (ErrSubjectSwitched).
func (s *PlayerService) StartSession(ctx context.Context, clientID, subject string) (*quiz.Session, error) {
	resolved, err := s.resolveSubject(subject)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	st, ok := s.active[clientID]
	previous := ""
	if ok {
		previous = st.subject
	} else {
		st = &playerState{}
		s.active[clientID] = st
	}
	st.subject = resolved
	s.mu.Unlock()

	loaded, err := s.banks.GetBank(ctx, resolved)
	if err != nil {
		return nil, err
	}

	snap, snapErr := s.snapshots.Load(ctx, clientID, resolved)
	if snapErr != nil {
		// Unreadable snapshot: start fresh, never block the session.
		s.log.Warn("snapshot load failed", zap.String("subject", resolved), zap.Error(snapErr))
		snap = nil
	}
	session := quiz.New(loaded, s.opts.Shuffle, snap)

	s.mu.Lock()
	if st.subject != resolved {
		s.mu.Unlock()
		return nil, ErrSubjectSwitched
	}
	st.session = session
	st.review = false
	s.mu.Unlock()

	s.persist(ctx, clientID, playerState{subject: resolved, session: session})
	if previous != "" && previous != resolved {
		s.emit(ctx, "switch_subject", clientID, resolved, map[string]any{"from": previous, "to": resolved})
	}
	if snap == nil {
		s.emit(ctx, "quiz_start", clientID, resolved, map[string]any{"total_questions": loaded.Len()})
	}
	return session, nil
}

// Session returns the client's active session and subject.
func (s *PlayerService) Session(clientID string) (*quiz.Session, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[clientID]
	if !ok || st.session == nil {
		return nil, "", domain.ErrSessionNotFound
	}
	return st.session, st.subject, nil
}

// Pick records an answer at a display position. Repeats and out-of-range
// picks are silent no-ops and produce no persistence write.
func (s *PlayerService) Pick(ctx context.Context, clientID string, position, originalOption int) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	if st.session.Pick(position, originalOption) {
		s.persist(ctx, clientID, st)
		ans, _ := st.session.AnswerAt(position)
		s.emit(ctx, "answer_question", clientID, st.subject, map[string]any{
			"question_number": position + 1,
			"is_correct":      ans.IsCorrect,
			"time_spent":      st.session.Report().ElapsedSeconds,
		})
	}
	return st.session, nil
}

// Reveal marks an unanswered position as answered correctly.
func (s *PlayerService) Reveal(ctx context.Context, clientID string, position int) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	if st.session.Reveal(position) {
		s.persist(ctx, clientID, st)
		s.emit(ctx, "reveal_answer", clientID, st.subject, map[string]any{"question_number": position + 1})
	}
	return st.session, nil
}

// Advance moves the cursor by delta, clamped to the session bounds.
func (s *PlayerService) Advance(ctx context.Context, clientID string, delta int) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	st.session.Advance(delta)
	s.persist(ctx, clientID, st)
	return st.session, nil
}

// JumpTo sets the cursor directly (sidebar or bookmark navigation).
func (s *PlayerService) JumpTo(ctx context.Context, clientID string, position int) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	if st.session.JumpTo(position) {
		s.persist(ctx, clientID, st)
	}
	return st.session, nil
}

// Restart replaces the active session with a cleared one against the same
// bank, reshuffling the order when asked.
func (s *PlayerService) Restart(ctx context.Context, clientID string, reshuffle bool) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	next := st.session.Restart(reshuffle, s.opts.Shuffle)

	s.mu.Lock()
	if cur, ok := s.active[clientID]; ok {
		cur.session = next
		cur.review = false
	}
	s.mu.Unlock()

	s.persist(ctx, clientID, playerState{subject: st.subject, session: next})
	s.emit(ctx, "quiz_restart", clientID, st.subject, map[string]any{"reshuffle": reshuffle})
	return next, nil
}

// Submit finalizes the session, records the attempt in history, and relays
// the completion event. History and relay failures are logged, never
// surfaced: submission semantics stay with the caller.
func (s *PlayerService) Submit(ctx context.Context, clientID string) (quiz.Report, error) {
	st, err := s.state(clientID)
	if err != nil {
		return quiz.Report{}, err
	}
	st.session.Submit()
	s.persist(ctx, clientID, st)

	report := st.session.Report()
	entry := domain.HistoryEntry{
		Timestamp:  timeNow(),
		Subject:    st.subject,
		Total:      report.Total,
		Answered:   report.Answered,
		Correct:    report.Correct,
		Wrong:      report.Wrong,
		Seconds:    report.ElapsedSeconds,
		Percentage: report.AccuracyPercent,
	}
	if !st.review {
		if err := s.history.Append(ctx, clientID, entry); err != nil {
			s.log.Warn("history append failed", zap.String("subject", st.subject), zap.Error(err))
		}
	}
	s.emit(ctx, "quiz_complete", clientID, st.subject, map[string]any{
		"total":     report.Total,
		"answered":  report.Answered,
		"correct":   report.Correct,
		"accuracy":  report.AccuracyPercent,
		"timeSpent": report.ElapsedSeconds,
	})
	return report, nil
}

// ReviewWrong swaps the active session for a derived one over the questions
// answered incorrectly, in their original display order. With nothing wrong
// it is a no-op returning the existing session. Review sessions are never
// persisted, so the underlying subject snapshot survives the detour.
func (s *PlayerService) ReviewWrong(ctx context.Context, clientID string) (*quiz.Session, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	derived, ok := st.session.DeriveWrongOnly()
	if !ok {
		return st.session, nil
	}

	s.mu.Lock()
	if cur, ok := s.active[clientID]; ok {
		cur.session = derived
		cur.review = true
	}
	s.mu.Unlock()

	s.emit(ctx, "review_wrong", clientID, st.subject, map[string]any{"count": derived.Bank().Len()})
	return derived, nil
}

// ToggleBookmark flips the bookmark at a position and returns the updated
// list. Bookmarks are keyed by subject and survive restarts.
func (s *PlayerService) ToggleBookmark(ctx context.Context, clientID string, position int) ([]int, error) {
	st, err := s.state(clientID)
	if err != nil {
		return nil, err
	}
	positions, err := s.bookmarks.Load(ctx, clientID, st.subject)
	if err != nil {
		s.log.Warn("bookmark load failed", zap.String("subject", st.subject), zap.Error(err))
		positions = nil
	}

	found := -1
	for i, p := range positions {
		if p == position {
			found = i
			break
		}
	}
	if found >= 0 {
		positions = append(positions[:found], positions[found+1:]...)
	} else {
		positions = append(positions, position)
		s.emit(ctx, "add_bookmark", clientID, st.subject, map[string]any{"question_number": position + 1})
	}
	if err := s.bookmarks.Save(ctx, clientID, st.subject, positions); err != nil {
		s.log.Warn("bookmark save failed", zap.String("subject", st.subject), zap.Error(err))
	}
	return positions, nil
}

// Bookmarks lists the client's bookmarked positions for a subject.
func (s *PlayerService) Bookmarks(ctx context.Context, clientID, subject string) ([]int, error) {
	resolved, err := s.resolveSubject(subject)
	if err != nil {
		return nil, err
	}
	return s.bookmarks.Load(ctx, clientID, resolved)
}

// History lists the client's finished attempts, newest first.
func (s *PlayerService) History(ctx context.Context, clientID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 || limit > s.opts.HistoryLimit {
		limit = s.opts.HistoryLimit
	}
	return s.history.List(ctx, clientID, limit)
}

// UseHint reports hint usage and returns the hint text for a position.
func (s *PlayerService) UseHint(ctx context.Context, clientID string, position int) (string, error) {
	st, err := s.state(clientID)
	if err != nil {
		return "", err
	}
	q, ok := st.session.Question(position)
	if !ok {
		return "", nil
	}
	if q.Hint != "" {
		s.emit(ctx, "use_hint", clientID, st.subject, map[string]any{"question_number": position + 1})
	}
	return q.Hint, nil
}

// state returns a copy of the client's registry entry, taken under the lock.
// Mutators work against the copied fields so two connections sharing a
// client ID never race on the registry itself; the session they share is
// internally locked.
func (s *PlayerService) state(clientID string) (playerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[clientID]
	if !ok || st.session == nil {
		return playerState{}, domain.ErrSessionNotFound
	}
	return *st, nil
}

// persist writes the current snapshot. Failures are swallowed after a log
// line: in-memory state is never rolled back for a storage problem.
func (s *PlayerService) persist(ctx context.Context, clientID string, st playerState) {
	if st.review {
		return
	}
	snap := st.session.Snapshot()
	if err := s.snapshots.Save(ctx, clientID, st.subject, snap); err != nil {
		s.log.Warn("snapshot save failed", zap.String("subject", st.subject), zap.Error(err))
	}
}

func (s *PlayerService) emit(ctx context.Context, name, clientID, subject string, params map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.Event{Name: name, ClientID: clientID, Subject: subject, Params: params})
}
