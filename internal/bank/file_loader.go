package bank

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"quiz-player-service/internal/domain"
)

// FileLoader reads bank documents from a local directory, one JSON file per
// subject. Subject identifiers must be bare file names.
type FileLoader struct {
	dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

func (l *FileLoader) LoadBank(_ context.Context, subject string) (domain.Bank, error) {
	if subject == "" || filepath.Base(subject) != subject {
		return domain.Bank{}, fmt.Errorf("%w: %s", domain.ErrBankNotFound, subject)
	}
	data, err := os.ReadFile(filepath.Join(l.dir, subject))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Bank{}, fmt.Errorf("%w: %s", domain.ErrBankNotFound, subject)
		}
		return domain.Bank{}, fmt.Errorf("read bank %s: %w", subject, err)
	}
	return Parse(subject, data)
}
