// Package bank loads question banks from their JSON documents and owns the
// schema tolerance for the historical field names those documents carry.
package bank

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-player-service/internal/domain"
)

// Loader fetches the question bank for a subject from a backing resource.
type Loader interface {
	LoadBank(ctx context.Context, subject string) (domain.Bank, error)
}

// document is the tolerant wire shape: the question list historically
// appeared under either "questions" or "question".
type document struct {
	Questions []rawQuestion `json:"questions"`
	Legacy    []rawQuestion `json:"question"`
}

// rawQuestion tolerates the three historical spellings of the option list.
// Normalization onto domain.Question happens here and nowhere else.
type rawQuestion struct {
	Text          string          `json:"question"`
	Hint          string          `json:"hint"`
	AnswerOptions []domain.Option `json:"answerOptions"`
	LegacyOptions []domain.Option `json:"answeroption"`
	SnakeOptions  []domain.Option `json:"answer_options"`
}

func (q rawQuestion) options() []domain.Option {
	switch {
	case len(q.AnswerOptions) > 0:
		return q.AnswerOptions
	case len(q.LegacyOptions) > 0:
		return q.LegacyOptions
	default:
		return q.SnakeOptions
	}
}

// Parse decodes a bank document and normalizes it into an ordered bank.
// Per-question invariants (exactly one correct option, at least two options)
// are NOT validated here; consumers degrade gracefully on bad records.
func Parse(subject string, data []byte) (domain.Bank, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Bank{}, fmt.Errorf("%w: %v", domain.ErrMalformedBank, err)
	}
	raw := doc.Questions
	if len(raw) == 0 {
		raw = doc.Legacy
	}
	if len(raw) == 0 {
		return domain.Bank{}, fmt.Errorf("%w: %s", domain.ErrEmptyBank, subject)
	}
	bank := domain.Bank{Subject: subject, Questions: make([]domain.Question, 0, len(raw))}
	for _, q := range raw {
		bank.Questions = append(bank.Questions, domain.Question{
			Text:    q.Text,
			Hint:    q.Hint,
			Options: q.options(),
		})
	}
	return bank, nil
}
