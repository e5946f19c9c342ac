package domain

import "time"

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Rationale string `json:"rationale,omitempty"`
}

// Question models an MCQ question with (nominally) exactly one correct option.
type Question struct {
	Text    string   `json:"question"`
	Hint    string   `json:"hint,omitempty"`
	Options []Option `json:"answerOptions"`
}

// CorrectIndex returns the index of the first correct option, or -1 when the
// source data carries none. A -1 never matches a pick, so a malformed
// question degrades to unscorable instead of breaking navigation.
func (q Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// Bank is the full ordered set of questions for one subject, immutable once
// loaded. Identity is the subject identifier it was loaded under.
type Bank struct {
	Subject   string     `json:"subject"`
	Questions []Question `json:"questions"`
}

// Len returns the number of questions in the bank.
func (b Bank) Len() int { return len(b.Questions) }

// Answer records the outcome for one display position. Created once, by a
// pick or a reveal, and immutable thereafter.
type Answer struct {
	Picked       int  `json:"picked"`
	CorrectIndex int  `json:"correctIndex"`
	IsCorrect    bool `json:"isCorrect"`
}

// Order fixes the display order of a session: a permutation of bank indices
// plus an independent permutation of each position's option indices. Both are
// derived on (re)start only and never mutated mid-session. Identity
// permutations are used when shuffling is disabled, so every code path reads
// through an Order.
type Order struct {
	Questions []int         `json:"questionOrder"`
	Options   map[int][]int `json:"answerOrderMap"`
}

// Snapshot is the persisted form of a session, keyed by subject identity.
// The bank itself is not stored; it is re-fetched on resume.
type Snapshot struct {
	Index         int           `json:"index"`
	Score         int           `json:"score"`
	Answered      []*Answer     `json:"answered"`
	Viewed        []bool        `json:"viewed"`
	Length        int           `json:"length"`
	StartTime     int64         `json:"startTime,omitempty"` // epoch millis, 0 when unset
	QuestionOrder []int         `json:"questionOrder,omitempty"`
	AnswerOrder   map[int][]int `json:"answerOrderMap,omitempty"`
}

// HistoryEntry is one finished (submitted) attempt.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Subject    string    `json:"subject"`
	Total      int       `json:"total"`
	Answered   int       `json:"answered"`
	Correct    int       `json:"correct"`
	Wrong      int       `json:"wrong"`
	Seconds    int       `json:"time"`
	Percentage int       `json:"percentage"`
}

// Event is a fire-and-forget analytics signal. The core never reads these
// back; sinks may drop them freely.
type Event struct {
	Name     string         `json:"name"`
	ClientID string         `json:"clientId"`
	Subject  string         `json:"subject"`
	Params   map[string]any `json:"params,omitempty"`
}

// Subject is a catalog entry describing one selectable question bank.
type Subject struct {
	ID          string `json:"id" yaml:"id"`
	File        string `json:"file" yaml:"file"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}
