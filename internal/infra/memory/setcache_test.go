package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizroom-service/internal/domain"
)

func TestSetCacheCaches(t *testing.T) {
	loader := &countingLoader{
		SetLoader: NewStaticSetLoader(map[string]domain.QuestionSet{
			"set-1": sampleSet(),
		}),
	}
	cache := NewSetCache(loader, time.Minute)

	if _, err := cache.GetSet(context.Background(), "set-1"); err != nil {
		t.Fatalf("get set: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.GetSet(context.Background(), "set-1"); err != nil {
		t.Fatalf("get set 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestSetCachePropagatesNotFound(t *testing.T) {
	cache := NewSetCache(NewStaticSetLoader(nil), time.Minute)

	_, err := cache.GetSet(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSetNotFound) {
		t.Fatalf("expected set-not-found, got %v", err)
	}
}

type countingLoader struct {
	SetLoader
	calls int
}

func (l *countingLoader) LoadSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	l.calls++
	return l.SetLoader.LoadSet(ctx, setID)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID:    "set-1",
		Title: "Sample",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4"},
				CorrectIndex: 1,
				Points:       1,
			},
		},
	}
}
