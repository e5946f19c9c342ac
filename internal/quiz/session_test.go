package quiz

import (
	"math/rand"
	"testing"
	"time"

	"quiz-player-service/internal/domain"
)

func testBank(n int) domain.Bank {
	bank := domain.Bank{Subject: "c.json"}
	for i := 0; i < n; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			Text: "question",
			Options: []domain.Option{
				{Text: "wrong a"},
				{Text: "right", IsCorrect: true, Rationale: "because"},
				{Text: "wrong b"},
			},
		})
	}
	return bank
}

func testSession(t *testing.T, bank domain.Bank, shuffle Shuffle, snap *domain.Snapshot) *Session {
	t.Helper()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewWithClock(bank, shuffle, snap, func() time.Time { return clock }, rand.New(rand.NewSource(42)))
}

func TestPickFirstAnswerWins(t *testing.T) {
	s := testSession(t, testBank(3), Shuffle{}, nil)

	if !s.Pick(0, 1) {
		t.Fatalf("expected first pick to be recorded")
	}
	if s.Pick(0, 0) {
		t.Fatalf("expected repeated pick to be a no-op")
	}

	ans, ok := s.AnswerAt(0)
	if !ok || ans.Picked != 1 || !ans.IsCorrect {
		t.Fatalf("expected first answer to stand, got %+v", ans)
	}
	if s.Score() != 1 {
		t.Fatalf("expected score 1, got %d", s.Score())
	}
}

func TestPickOutOfRangeIsNoOp(t *testing.T) {
	s := testSession(t, testBank(2), Shuffle{}, nil)

	if s.Pick(-1, 0) || s.Pick(2, 0) {
		t.Fatalf("expected out-of-range picks to be no-ops")
	}
	if s.Pick(0, 99) {
		t.Fatalf("expected out-of-range option to be a no-op")
	}
	if s.Score() != 0 {
		t.Fatalf("expected score untouched, got %d", s.Score())
	}
}

func TestPickWithNoCorrectOptionNeverScores(t *testing.T) {
	bank := domain.Bank{Subject: "broken", Questions: []domain.Question{
		{Text: "no right answer", Options: []domain.Option{{Text: "a"}, {Text: "b"}}},
	}}
	s := testSession(t, bank, Shuffle{}, nil)

	if !s.Pick(0, 0) {
		t.Fatalf("expected pick to be recorded")
	}
	ans, _ := s.AnswerAt(0)
	if ans.IsCorrect || ans.CorrectIndex != -1 {
		t.Fatalf("expected unscorable answer, got %+v", ans)
	}
	if s.Score() != 0 {
		t.Fatalf("expected score 0, got %d", s.Score())
	}
}

func TestRevealCountsAsCorrect(t *testing.T) {
	s := testSession(t, testBank(2), Shuffle{}, nil)

	if !s.Reveal(1) {
		t.Fatalf("expected reveal to be recorded")
	}
	if s.Reveal(1) {
		t.Fatalf("expected repeated reveal to be a no-op")
	}
	ans, _ := s.AnswerAt(1)
	if !ans.IsCorrect || ans.Picked != 1 || ans.CorrectIndex != 1 {
		t.Fatalf("expected revealed answer marked correct, got %+v", ans)
	}
	if s.Score() != 1 {
		t.Fatalf("expected score 1, got %d", s.Score())
	}

	// Reveal after a pick must not overwrite it.
	s.Pick(0, 0)
	if s.Reveal(0) {
		t.Fatalf("expected reveal on answered position to be a no-op")
	}
}

func TestScoreAlwaysMatchesAnswerRecord(t *testing.T) {
	s := testSession(t, testBank(4), Shuffle{Questions: true, Options: true}, nil)

	s.Pick(0, 1)
	s.Pick(1, 0)
	s.Reveal(2)
	s.Pick(3, 1)

	correct := 0
	for pos := 0; pos < 4; pos++ {
		if ans, ok := s.AnswerAt(pos); ok && ans.IsCorrect {
			correct++
		}
	}
	if s.Score() != correct {
		t.Fatalf("score %d diverged from answer record %d", s.Score(), correct)
	}
}

func TestAdvanceClampsAtBothEnds(t *testing.T) {
	s := testSession(t, testBank(3), Shuffle{}, nil)

	if pos := s.Advance(-1); pos != 0 {
		t.Fatalf("expected clamp at 0, got %d", pos)
	}
	s.Advance(1)
	s.Advance(1)
	if pos := s.Advance(1); pos != 2 {
		t.Fatalf("expected clamp at last position, got %d", pos)
	}

	viewed := s.Viewed()
	for i, v := range viewed {
		if !v {
			t.Fatalf("expected position %d viewed, got %v", i, viewed)
		}
	}
}

func TestJumpToMarksViewed(t *testing.T) {
	s := testSession(t, testBank(5), Shuffle{}, nil)

	if !s.JumpTo(3) {
		t.Fatalf("expected jump to succeed")
	}
	if s.Position() != 3 {
		t.Fatalf("expected position 3, got %d", s.Position())
	}
	if s.JumpTo(5) || s.JumpTo(-1) {
		t.Fatalf("expected out-of-range jumps to fail")
	}
	if !s.Viewed()[3] {
		t.Fatalf("expected position 3 marked viewed")
	}
}

func TestIsCompleteOnlyWhenEveryPositionAnswered(t *testing.T) {
	s := testSession(t, testBank(2), Shuffle{}, nil)

	if s.IsComplete() {
		t.Fatalf("fresh session must not be complete")
	}
	s.Pick(0, 1)
	if s.IsComplete() {
		t.Fatalf("one unanswered position left, must not be complete")
	}
	s.Reveal(1)
	if !s.IsComplete() {
		t.Fatalf("expected complete after every position answered")
	}
}

func TestSubmitBlocksAnswerMutators(t *testing.T) {
	s := testSession(t, testBank(2), Shuffle{}, nil)

	s.Pick(0, 1)
	s.Submit()
	if !s.Submitted() {
		t.Fatalf("expected submitted flag")
	}
	if s.Pick(1, 1) || s.Reveal(1) {
		t.Fatalf("expected mutators to be no-ops after submit")
	}

	next := s.Restart(false, Shuffle{})
	if next.Submitted() {
		t.Fatalf("restart must leave the submitted state")
	}
}

func TestRestartKeepsOrderWithoutReshuffle(t *testing.T) {
	s := testSession(t, testBank(6), Shuffle{Questions: true, Options: true}, nil)
	before := s.Order()

	s.Pick(0, 1)
	s.Advance(1)
	next := s.Restart(false, Shuffle{Questions: true, Options: true})

	after := next.Order()
	if !equalInts(before.Questions, after.Questions) {
		t.Fatalf("expected question order preserved: %v vs %v", before.Questions, after.Questions)
	}
	for pos := range before.Options {
		if !equalInts(before.Options[pos], after.Options[pos]) {
			t.Fatalf("expected option order preserved at %d", pos)
		}
	}
	if next.Score() != 0 || next.Position() != 0 {
		t.Fatalf("expected cleared progress, got score=%d pos=%d", next.Score(), next.Position())
	}
	if _, ok := next.AnswerAt(0); ok {
		t.Fatalf("expected answers cleared")
	}

	// The old session must be left intact for stale references.
	if s.Score() != 1 || s.Position() != 1 {
		t.Fatalf("restart mutated the old session: score=%d pos=%d", s.Score(), s.Position())
	}
}

func TestRestartReshuffleDerivesNewOrder(t *testing.T) {
	s := testSession(t, testBank(50), Shuffle{Questions: true, Options: true}, nil)
	before := s.Order()

	next := s.Restart(true, Shuffle{Questions: true, Options: true})
	after := next.Order()

	if !IsPermutation(after.Questions, 50) {
		t.Fatalf("reshuffled order is not a permutation: %v", after.Questions)
	}
	// 50 elements colliding on the same permutation is practically impossible.
	if equalInts(before.Questions, after.Questions) {
		t.Fatalf("expected a different permutation after reshuffle")
	}
}

func TestDeriveWrongOnlyPreservesDisplayOrder(t *testing.T) {
	bank := domain.Bank{Subject: "c.json", Questions: []domain.Question{
		{Text: "q0", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		{Text: "q1", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		{Text: "q2", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
		{Text: "q3", Options: []domain.Option{{Text: "a", IsCorrect: true}, {Text: "b"}}},
	}}
	s := testSession(t, bank, Shuffle{}, nil)

	s.Pick(0, 0) // correct
	s.Pick(1, 1) // wrong
	s.Pick(2, 1) // wrong
	s.Pick(3, 0) // correct

	review, ok := s.DeriveWrongOnly()
	if !ok {
		t.Fatalf("expected a review session")
	}
	sub := review.Bank()
	if sub.Len() != 2 {
		t.Fatalf("expected 2 review questions, got %d", sub.Len())
	}
	if sub.Questions[0].Text != "q1" || sub.Questions[1].Text != "q2" {
		t.Fatalf("expected wrong answers in original display order, got %v", sub.Questions)
	}
	order := review.Order()
	if !equalInts(order.Questions, []int{0, 1}) {
		t.Fatalf("expected review session unshuffled, got %v", order.Questions)
	}
}

func TestDeriveWrongOnlyWithNoWrongAnswersIsNoOp(t *testing.T) {
	s := testSession(t, testBank(2), Shuffle{}, nil)
	s.Pick(0, 1)
	s.Pick(1, 1)

	same, ok := s.DeriveWrongOnly()
	if ok {
		t.Fatalf("expected no review session when nothing is wrong")
	}
	if same != s {
		t.Fatalf("expected the existing session back")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	bank := testBank(4)
	s := testSession(t, bank, Shuffle{Questions: true, Options: true}, nil)
	s.Pick(0, 1)
	s.Pick(1, 0)
	s.Advance(1)
	s.Advance(1)

	snap := s.Snapshot()
	resumed := testSession(t, bank, Shuffle{Questions: true, Options: true}, &snap)

	if resumed.Position() != s.Position() {
		t.Fatalf("position not restored: %d vs %d", resumed.Position(), s.Position())
	}
	if resumed.Score() != s.Score() {
		t.Fatalf("score not restored: %d vs %d", resumed.Score(), s.Score())
	}
	want, got := s.Order(), resumed.Order()
	if !equalInts(want.Questions, got.Questions) {
		t.Fatalf("question order not restored: %v vs %v", got.Questions, want.Questions)
	}
	for pos := range want.Options {
		if !equalInts(want.Options[pos], got.Options[pos]) {
			t.Fatalf("option order not restored at %d", pos)
		}
	}
	for pos := 0; pos < bank.Len(); pos++ {
		a, aok := s.AnswerAt(pos)
		b, bok := resumed.AnswerAt(pos)
		if aok != bok || a != b {
			t.Fatalf("answer mismatch at %d: %+v/%v vs %+v/%v", pos, a, aok, b, bok)
		}
	}
}

func TestSnapshotLengthMismatchIsDiscarded(t *testing.T) {
	s := testSession(t, testBank(4), Shuffle{Questions: true, Options: true}, nil)
	s.Pick(0, 1)
	snap := s.Snapshot()

	// The subject file changed between runs: three questions now.
	resumed := testSession(t, testBank(3), Shuffle{}, &snap)
	if resumed.Score() != 0 || resumed.Position() != 0 {
		t.Fatalf("expected a fresh session on length mismatch, got score=%d pos=%d", resumed.Score(), resumed.Position())
	}
	if !equalInts(resumed.Order().Questions, []int{0, 1, 2}) {
		t.Fatalf("expected fresh identity order, got %v", resumed.Order().Questions)
	}
}

func TestSnapshotWithBrokenPermutationIsDiscarded(t *testing.T) {
	bank := testBank(3)
	snap := domain.Snapshot{
		Index:         1,
		Score:         2,
		Length:        3,
		QuestionOrder: []int{0, 0, 2}, // not a bijection
	}
	resumed := testSession(t, bank, Shuffle{}, &snap)
	if resumed.Score() != 0 || resumed.Position() != 0 {
		t.Fatalf("expected fresh session for broken permutation")
	}
}

func TestResumeClampsStoredIndex(t *testing.T) {
	bank := testBank(3)
	snap := domain.Snapshot{
		Index:         99,
		Length:        3,
		QuestionOrder: []int{2, 0, 1},
	}
	resumed := testSession(t, bank, Shuffle{}, &snap)
	if resumed.Position() != 2 {
		t.Fatalf("expected stored index clamped to 2, got %d", resumed.Position())
	}
}

func TestResumeRegeneratesMissingOptionOrder(t *testing.T) {
	bank := testBank(2)
	snap := domain.Snapshot{
		Length:        2,
		QuestionOrder: []int{1, 0},
	}
	resumed := testSession(t, bank, Shuffle{}, &snap)
	opts := resumed.DisplayOptions(0)
	if len(opts) != 3 {
		t.Fatalf("expected 3 display options, got %d", len(opts))
	}
	for i, opt := range opts {
		if opt.OriginalIndex != i {
			t.Fatalf("expected identity option order, got %+v", opts)
		}
	}
}

func TestDisplayOptionsFollowPermutation(t *testing.T) {
	bank := testBank(1)
	snap := domain.Snapshot{
		Length:        1,
		QuestionOrder: []int{0},
		AnswerOrder:   map[int][]int{0: {2, 0, 1}},
	}
	s := testSession(t, bank, Shuffle{}, &snap)

	opts := s.DisplayOptions(0)
	if opts[0].OriginalIndex != 2 || opts[1].OriginalIndex != 0 || opts[2].OriginalIndex != 1 {
		t.Fatalf("expected display order {2,0,1}, got %+v", opts)
	}
	if opts[1].Option.Text != "wrong a" {
		t.Fatalf("expected option text to follow the permutation, got %+v", opts[1])
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
