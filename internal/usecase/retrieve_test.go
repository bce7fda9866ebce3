package usecase

import (
	"context"
	"errors"
	"testing"

	"qabot/internal/adapter/analyzer"
	"qabot/internal/adapter/embedding"
	"qabot/internal/domain"
)

func newRetriever(t *testing.T, entries []domain.KnowledgeEntry) (*RetrieveUseCase, *countingEmbedder) {
	t.Helper()
	emb := &countingEmbedder{inner: hashEmbedder()}
	corpus, err := buildCorpus(entries, emb)
	if err != nil {
		t.Fatal(err)
	}
	return NewRetrieveUseCase(NewCorpusHolder(corpus), emb), emb
}

func TestRetrieve_SelfMatch(t *testing.T) {
	entries := entriesOf(
		[2]string{"What is your name?", "Madhuri"},
		[2]string{"What do you study?", "Computer Science"},
		[2]string{"Where were you born?", "Guntur"},
		[2]string{"Which sport do you play?", "Badminton"},
	)
	uc, _ := newRetriever(t, entries)

	for i, e := range entries {
		m, err := uc.RetrieveMatch(context.Background(), e.Question)
		if err != nil {
			t.Fatal(err)
		}
		if m == nil || m.Position != i {
			t.Errorf("query %q matched %+v, want position %d", e.Question, m, i)
		}
	}
}

func TestRetrieve_Scenario(t *testing.T) {
	uc, _ := newRetriever(t, entriesOf(
		[2]string{"What is your name?", "Madhuri"},
		[2]string{"What do you study?", "Computer Science"},
	))

	answer, ok, err := uc.Retrieve(context.Background(), "What's your name?")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || answer != "Madhuri" {
		t.Errorf("got (%q, %v), want (Madhuri, true)", answer, ok)
	}
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	uc, emb := newRetriever(t, nil)

	answer, ok, err := uc.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok || answer != "" {
		t.Errorf("got (%q, %v), want (\"\", false)", answer, ok)
	}
	if emb.calls != 0 {
		t.Errorf("empty corpus should not embed the query")
	}
}

func TestRetrieve_NilCorpus(t *testing.T) {
	uc := NewRetrieveUseCase(NewCorpusHolder(nil), hashEmbedder())
	_, ok, err := uc.Retrieve(context.Background(), "anything")
	if err != nil || ok {
		t.Errorf("got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRetrieve_TieGoesToLowerPosition(t *testing.T) {
	uc, _ := newRetriever(t, entriesOf(
		[2]string{"Favourite colour?", "Blue"},
		[2]string{"Favourite colour?", "Blue"},
		[2]string{"Favourite colour?", "Blue"},
	))

	m, err := uc.RetrieveMatch(context.Background(), "Favourite colour?")
	if err != nil {
		t.Fatal(err)
	}
	if m.Position != 0 {
		t.Errorf("expected position 0, got %d", m.Position)
	}
}

func TestRetrieve_AlwaysAnswers(t *testing.T) {
	uc, _ := newRetriever(t, entriesOf([2]string{"What is your name?", "Madhuri"}))

	answer, ok, err := uc.Retrieve(context.Background(), "completely unrelated gibberish zzz")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || answer != "Madhuri" {
		t.Errorf("got (%q, %v), want the only entry", answer, ok)
	}
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	uc, emb := newRetriever(t, entriesOf([2]string{"Q", "A"}))
	emb.err = errBoom

	_, _, err := uc.Retrieve(context.Background(), "Q")
	var retrievalErr *domain.RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if retrievalErr.Op != "embed" || !errors.Is(err, errBoom) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRetrieve_ModelMismatch(t *testing.T) {
	emb := &countingEmbedder{inner: hashEmbedder()}
	corpus, err := buildCorpus(entriesOf([2]string{"Q", "A"}), emb)
	if err != nil {
		t.Fatal(err)
	}
	other, err := embedding.NewHashEmbedder(analyzer.NewTokenizer(true), 128)
	if err != nil {
		t.Fatal(err)
	}

	uc := NewRetrieveUseCase(NewCorpusHolder(corpus), other)
	_, _, err = uc.Retrieve(context.Background(), "Q")
	if !errors.Is(err, ErrModelMismatch) {
		t.Fatalf("expected ErrModelMismatch, got %v", err)
	}
}

func TestCorpusHolder_Swap(t *testing.T) {
	emb := &countingEmbedder{inner: hashEmbedder()}
	first, err := buildCorpus(entriesOf([2]string{"What is your name?", "Madhuri"}), emb)
	if err != nil {
		t.Fatal(err)
	}
	second, err := buildCorpus(entriesOf([2]string{"What is your name?", "Madhu"}), emb)
	if err != nil {
		t.Fatal(err)
	}

	holder := NewCorpusHolder(first)
	swapped := 0
	holder.OnSwap(func(*Corpus) { swapped++ })
	uc := NewRetrieveUseCase(holder, emb)

	held := holder.Load()
	holder.Swap(second)

	answer, _, err := uc.Retrieve(context.Background(), "What is your name?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Madhu" {
		t.Errorf("expected answer from new corpus, got %q", answer)
	}
	if held.Entry(0).Answer != "Madhuri" {
		t.Error("previously loaded corpus must not change")
	}
	if holder.Generation() != 1 || swapped != 1 {
		t.Errorf("generation=%d swapped=%d, want 1 and 1", holder.Generation(), swapped)
	}
}
