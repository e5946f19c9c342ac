package quiz

import (
	"math/rand"

	"quiz-player-service/internal/domain"
)

// Shuffle controls which parts of a session order are randomized. Question
// and option order are permuted independently; a disabled axis uses the
// identity permutation so downstream code never special-cases it.
type Shuffle struct {
	Questions bool
	Options   bool
}

// Permutation returns a uniformly random permutation of [0, n) using an
// in-place Fisher-Yates shuffle.
func Permutation(rnd *rand.Rand, n int) []int {
	p := Identity(n)
	for i := n - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Identity returns the identity permutation of [0, n).
func Identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// IsPermutation reports whether p is a bijection over [0, n).
func IsPermutation(p []int, n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// NewOrder derives a fresh session order for bank: one permutation over
// question positions and an independent permutation per question over its
// option indices.
func NewOrder(rnd *rand.Rand, bank domain.Bank, shuffle Shuffle) domain.Order {
	n := bank.Len()
	order := domain.Order{Options: make(map[int][]int, n)}
	if shuffle.Questions {
		order.Questions = Permutation(rnd, n)
	} else {
		order.Questions = Identity(n)
	}
	for pos := 0; pos < n; pos++ {
		optCount := len(bank.Questions[order.Questions[pos]].Options)
		if shuffle.Options {
			order.Options[pos] = Permutation(rnd, optCount)
		} else {
			order.Options[pos] = Identity(optCount)
		}
	}
	return order
}
