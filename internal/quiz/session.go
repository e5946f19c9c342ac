package quiz

import (
	"math/rand"
	"sync"
	"time"

	"quiz-player-service/internal/domain"
)

// Session is the quiz session state machine: a cursor over a (possibly
// shuffled) view of one bank, a sparse answer record, and a derived score.
// All mutators are guarded by a mutex so transport handlers can share one
// instance; each reports whether it changed state, which is the caller's
// signal to persist a fresh snapshot.
type Session struct {
	mu        sync.Mutex
	bank      domain.Bank
	order     domain.Order
	position  int
	answers   []*domain.Answer
	viewed    []bool
	score     int
	startedAt time.Time
	submitted bool
	now       func() time.Time
	rnd       *rand.Rand
}

// New starts a session against bank. When snap is non-nil and consistent with
// the bank (matching length and a valid stored permutation), the session is
// reconstructed from it; otherwise a fresh order is derived and the session
// begins empty at position 0. A snapshot sized for a different bank length is
// discarded entirely rather than partially repaired.
func New(bank domain.Bank, shuffle Shuffle, snap *domain.Snapshot) *Session {
	return NewWithClock(bank, shuffle, snap, time.Now, nil)
}

// NewWithClock is New with an injectable clock and randomness source for
// deterministic tests.
func NewWithClock(bank domain.Bank, shuffle Shuffle, snap *domain.Snapshot, now func() time.Time, rnd *rand.Rand) *Session {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now().UnixNano()))
	}
	s := &Session{
		bank: bank,
		now:  now,
		rnd:  rnd,
	}
	if snap != nil && snapshotMatches(bank, snap) {
		s.restore(snap)
		return s
	}
	s.reset(NewOrder(rnd, bank, shuffle))
	return s
}

func snapshotMatches(bank domain.Bank, snap *domain.Snapshot) bool {
	return snap.Length == bank.Len() && IsPermutation(snap.QuestionOrder, bank.Len())
}

func (s *Session) restore(snap *domain.Snapshot) {
	n := s.bank.Len()
	s.order = domain.Order{Questions: snap.QuestionOrder, Options: make(map[int][]int, n)}
	for pos := 0; pos < n; pos++ {
		optCount := len(s.bank.Questions[s.order.Questions[pos]].Options)
		if stored, ok := snap.AnswerOrder[pos]; ok && IsPermutation(stored, optCount) {
			s.order.Options[pos] = stored
		} else {
			s.order.Options[pos] = Identity(optCount)
		}
	}

	s.answers = make([]*domain.Answer, n)
	for i, ans := range snap.Answered {
		if i >= n || ans == nil {
			continue
		}
		copied := *ans
		s.answers[i] = &copied
	}
	s.viewed = make([]bool, n)
	for i, v := range snap.Viewed {
		if i < n {
			s.viewed[i] = v
		}
	}

	s.position = clamp(snap.Index, 0, n-1)
	// The score is always recomputable from the answer record; deriving it
	// here keeps a tampered or stale snapshot from breaking the invariant.
	s.score = countCorrect(s.answers)
	if snap.StartTime > 0 {
		s.startedAt = time.UnixMilli(snap.StartTime)
	} else {
		s.startedAt = s.now()
	}
}

func (s *Session) reset(order domain.Order) {
	n := s.bank.Len()
	s.order = order
	s.position = 0
	s.answers = make([]*domain.Answer, n)
	s.viewed = make([]bool, n)
	s.score = 0
	s.startedAt = s.now()
	s.submitted = false
	if n > 0 {
		s.viewed[0] = true
	}
}

// Pick records the user's choice for the question at a display position.
// originalOption is the option's index in the bank's authored order, not the
// display order. The first answer wins: repeated picks, out-of-range
// positions, and picks after submission are silent no-ops (UI debounce, not
// errors). It returns true when an answer was recorded.
func (s *Session) Pick(position, originalOption int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || !s.inRange(position) || s.answers[position] != nil {
		return false
	}
	q := s.questionAt(position)
	if originalOption < 0 || originalOption >= len(q.Options) {
		return false
	}
	correct := q.CorrectIndex()
	ans := &domain.Answer{
		Picked:       originalOption,
		CorrectIndex: correct,
		IsCorrect:    correct >= 0 && originalOption == correct,
	}
	s.answers[position] = ans
	if ans.IsCorrect {
		s.score++
	}
	return true
}

// Reveal marks the question at position as answered correctly without a real
// user choice. Like Pick it is first-answer-wins and silently ignores
// answered or out-of-range positions.
func (s *Session) Reveal(position int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || !s.inRange(position) || s.answers[position] != nil {
		return false
	}
	correct := s.questionAt(position).CorrectIndex()
	s.answers[position] = &domain.Answer{
		Picked:       correct,
		CorrectIndex: correct,
		IsCorrect:    true,
	}
	s.score++
	return true
}

// Advance moves the cursor by delta (typically ±1), clamped to the valid
// range, and marks the new position viewed when it is still unanswered. It
// returns the resulting position.
func (s *Session) Advance(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = clamp(s.position+delta, 0, s.bank.Len()-1)
	s.markViewedLocked(s.position)
	return s.position
}

// JumpTo sets the cursor directly (sidebar or bookmark navigation). It
// returns false when position is out of range.
func (s *Session) JumpTo(position int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(position) {
		return false
	}
	s.position = position
	s.markViewedLocked(position)
	return true
}

// Restart returns a wholly new session against the same bank with answers,
// viewed marks, score, and timer cleared. With reshuffle the order is
// re-derived; otherwise the existing order is kept for repeatable runs. The
// receiver is left untouched so stale references in event handlers observe a
// consistent (old) state.
func (s *Session) Restart(reshuffle bool, shuffle Shuffle) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := &Session{bank: s.bank, now: s.now, rnd: s.rnd}
	if reshuffle {
		next.reset(NewOrder(s.rnd, s.bank, shuffle))
	} else {
		next.reset(cloneOrder(s.order))
	}
	return next
}

// Submit finalizes the session. Answer mutators become no-ops afterwards;
// only Restart leaves the submitted state.
func (s *Session) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = true
}

// DeriveWrongOnly builds a review session restricted to the questions
// answered incorrectly, in the display order the user originally encountered
// them, unshuffled. With zero wrong answers it returns the receiver and
// false.
func (s *Session) DeriveWrongOnly() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var wrong []domain.Question
	for pos, ans := range s.answers {
		if ans != nil && !ans.IsCorrect {
			wrong = append(wrong, s.questionAt(pos))
		}
	}
	if len(wrong) == 0 {
		return s, false
	}
	sub := domain.Bank{Subject: s.bank.Subject, Questions: wrong}
	return NewWithClock(sub, Shuffle{}, nil, s.now, s.rnd), true
}

// Snapshot serializes the session for persistence. The bank is not included;
// it is re-fetched on resume and matched by length.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domain.Snapshot{
		Index:         s.position,
		Score:         s.score,
		Answered:      make([]*domain.Answer, len(s.answers)),
		Viewed:        append([]bool(nil), s.viewed...),
		Length:        s.bank.Len(),
		StartTime:     s.startedAt.UnixMilli(),
		QuestionOrder: append([]int(nil), s.order.Questions...),
		AnswerOrder:   make(map[int][]int, len(s.order.Options)),
	}
	for i, ans := range s.answers {
		if ans != nil {
			copied := *ans
			snap.Answered[i] = &copied
		}
	}
	for pos, perm := range s.order.Options {
		snap.AnswerOrder[pos] = append([]int(nil), perm...)
	}
	return snap
}

// Bank returns the bank this session plays.
func (s *Session) Bank() domain.Bank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

// Order returns a copy of the session order.
func (s *Session) Order() domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrder(s.order)
}

// Position returns the current cursor.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Score returns the count of correct answers so far.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Submitted reports whether the session has been finalized.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// IsComplete reports whether every position carries an answer.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompleteLocked()
}

func (s *Session) isCompleteLocked() bool {
	for _, ans := range s.answers {
		if ans == nil {
			return false
		}
	}
	return true
}

// Question returns the question shown at a display position.
func (s *Session) Question(position int) (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(position) {
		return domain.Question{}, false
	}
	return s.questionAt(position), true
}

// DisplayOption pairs an option with its index in the authored order, which
// is the index Pick expects back.
type DisplayOption struct {
	OriginalIndex int           `json:"originalIndex"`
	Option        domain.Option `json:"option"`
}

// DisplayOptions returns the options at a display position in display order.
func (s *Session) DisplayOptions(position int) []DisplayOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(position) {
		return nil
	}
	q := s.questionAt(position)
	perm := s.order.Options[position]
	out := make([]DisplayOption, 0, len(perm))
	for _, orig := range perm {
		out = append(out, DisplayOption{OriginalIndex: orig, Option: q.Options[orig]})
	}
	return out
}

// AnswerAt returns a copy of the answer at position, if any.
func (s *Session) AnswerAt(position int) (domain.Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(position) || s.answers[position] == nil {
		return domain.Answer{}, false
	}
	return *s.answers[position], true
}

// Viewed returns a copy of the viewed flags by display position.
func (s *Session) Viewed() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.viewed...)
}

func (s *Session) questionAt(position int) domain.Question {
	return s.bank.Questions[s.order.Questions[position]]
}

func (s *Session) markViewedLocked(position int) {
	if s.answers[position] == nil {
		s.viewed[position] = true
	}
}

func (s *Session) inRange(position int) bool {
	return position >= 0 && position < s.bank.Len()
}

func countCorrect(answers []*domain.Answer) int {
	n := 0
	for _, ans := range answers {
		if ans != nil && ans.IsCorrect {
			n++
		}
	}
	return n
}

func cloneOrder(order domain.Order) domain.Order {
	out := domain.Order{
		Questions: append([]int(nil), order.Questions...),
		Options:   make(map[int][]int, len(order.Options)),
	}
	for pos, perm := range order.Options {
		out.Options[pos] = append([]int(nil), perm...)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
