package quiz

// Report carries the derived counters for one session, recomputed on demand.
type Report struct {
	Total           int  `json:"total"`
	Answered        int  `json:"answered"`
	Correct         int  `json:"correct"`
	Wrong           int  `json:"wrong"`
	Unanswered      int  `json:"unanswered"`
	AccuracyPercent int  `json:"accuracyPercent"`
	ProgressPercent int  `json:"progressPercent"`
	ElapsedSeconds  int  `json:"elapsedSeconds"`
	AvgSeconds      int  `json:"avgSecondsPerAnswer"`
	Complete        bool `json:"complete"`
	Submitted       bool `json:"submitted"`
}

// Report computes the current derived values. Accuracy and average time are
// defined as 0 when nothing has been answered yet, never NaN.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Report{
		Total:     s.bank.Len(),
		Submitted: s.submitted,
		Complete:  s.isCompleteLocked(),
	}
	for _, ans := range s.answers {
		if ans == nil {
			continue
		}
		r.Answered++
		if ans.IsCorrect {
			r.Correct++
		} else {
			r.Wrong++
		}
	}
	r.Unanswered = r.Total - r.Answered
	r.ElapsedSeconds = int(s.now().Sub(s.startedAt).Seconds())
	if r.ElapsedSeconds < 0 {
		r.ElapsedSeconds = 0
	}
	if r.Answered > 0 {
		r.AccuracyPercent = roundPercent(r.Correct, r.Answered)
		r.AvgSeconds = (r.ElapsedSeconds + r.Answered/2) / r.Answered
	}
	if r.Total > 0 {
		r.ProgressPercent = roundPercent(r.Answered, r.Total)
	}
	return r
}

func roundPercent(part, whole int) int {
	return (part*100 + whole/2) / whole
}
