package memory

import (
	"context"
	"testing"
	"time"

	"quiz-player-service/internal/bank"
	"quiz-player-service/internal/domain"
)

func sampleBank() domain.Bank {
	return domain.Bank{
		Subject: "c.json",
		Questions: []domain.Question{
			{
				Text: "What is 2 + 2?",
				Options: []domain.Option{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
				},
			},
		},
	}
}

type countingLoader struct {
	bank.Loader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, subject string) (domain.Bank, error) {
	l.calls++
	return l.Loader.LoadBank(ctx, subject)
}

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		Loader: NewStaticLoader(map[string]domain.Bank{"c.json": sampleBank()}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), "c.json"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetBank(context.Background(), "c.json"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestBankRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewBankRepository(NewStaticLoader(nil), time.Minute)
	if _, err := repo.GetBank(context.Background(), "missing.json"); err == nil {
		t.Fatalf("expected error for unknown subject")
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if snap, err := store.Load(ctx, "u1", "c.json"); err != nil || snap != nil {
		t.Fatalf("expected no snapshot yet, got %+v err=%v", snap, err)
	}

	want := domain.Snapshot{Index: 2, Score: 1, Length: 3, QuestionOrder: []int{2, 0, 1}}
	if err := store.Save(ctx, "u1", "c.json", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "u1", "c.json")
	if err != nil || got == nil {
		t.Fatalf("load: %+v err=%v", got, err)
	}
	if got.Index != 2 || got.Score != 1 || got.Length != 3 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	// Keys are per subject: a different subject has no snapshot.
	if snap, _ := store.Load(ctx, "u1", "d.json"); snap != nil {
		t.Fatalf("expected per-subject keying")
	}

	if err := store.Delete(ctx, "u1", "c.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snap, _ := store.Load(ctx, "u1", "c.json"); snap != nil {
		t.Fatalf("expected snapshot removed")
	}
}

func TestBookmarkStoreKeysBySubject(t *testing.T) {
	ctx := context.Background()
	store := NewBookmarkStore()

	if err := store.Save(ctx, "u1", "c.json", []int{3, 7}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "u1", "c.json")
	if err != nil || len(got) != 2 || got[0] != 3 {
		t.Fatalf("load: %v err=%v", got, err)
	}
	other, _ := store.Load(ctx, "u1", "d.json")
	if len(other) != 0 {
		t.Fatalf("expected empty bookmarks for other subject, got %v", other)
	}
}

func TestHistoryStoreCapsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(3)

	for i := 0; i < 5; i++ {
		entry := domain.HistoryEntry{Subject: "c.json", Correct: i}
		if err := store.Append(ctx, "u1", entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	list, err := store.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(list))
	}
	if list[0].Correct != 4 || list[2].Correct != 2 {
		t.Fatalf("expected newest first, got %+v", list)
	}

	limited, _ := store.List(ctx, "u1", 1)
	if len(limited) != 1 || limited[0].Correct != 4 {
		t.Fatalf("expected limit applied, got %+v", limited)
	}
}
