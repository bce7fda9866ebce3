package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qabot/internal/adapter/fs"
	"qabot/internal/domain"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "my_data.csv",
		"id,question,answer,notes\n"+
			"1,What is your name?,Madhuri,x\n"+
			"2,What do you study?,Computer Science,\n"+
			"3,\"Where, exactly?\",\"Line one\nLine two\",y\n")

	r := NewCSVReader([]string{path}, "question", "answer")
	entries, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Question != "What is your name?" || entries[0].Answer != "Madhuri" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Context != "Question: What do you study?\nAnswer: Computer Science" {
		t.Errorf("unexpected context: %q", entries[1].Context)
	}
	if entries[2].Answer != "Line one\nLine two" {
		t.Errorf("quoted multi-line answer not preserved: %q", entries[2].Answer)
	}
}

func TestCSVReader_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "bad.csv", "question,reply\nhi,hello\n")

	_, err := NewCSVReader([]string{path}, "question", "answer").Read(context.Background())
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "answer" {
		t.Errorf("expected missing [answer], got %v", schemaErr.Missing)
	}
	if !strings.Contains(err.Error(), "bad.csv") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestCSVReader_EmptyCell(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "gap.csv", "question,answer\nq1,a1\nq2,\n")

	_, err := NewCSVReader([]string{path}, "question", "answer").Read(context.Background())
	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Column != "answer" || schemaErr.Row != 3 {
		t.Errorf("expected answer at line 3, got %q at %d", schemaErr.Column, schemaErr.Row)
	}
}

func TestCSVReader_BOMHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "bom.csv", "\ufeffquestion,answer\nq,a\n")

	entries, err := NewCSVReader([]string{path}, "question", "answer").Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestCSVReader_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "empty.csv", "question,answer\n")

	entries, err := NewCSVReader([]string{path}, "question", "answer").Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestCSVReader_LoadErrors(t *testing.T) {
	_, err := NewCSVReader([]string{"/nonexistent/my_data.csv"}, "question", "answer").Read(context.Background())
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError for missing file, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}

	dir := t.TempDir()
	path := writeCSV(t, dir, "ragged.csv", "question,answer\nq1,a1,extra\n")
	_, err = NewCSVReader([]string{path}, "question", "answer").Read(context.Background())
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError for ragged row, got %v", err)
	}
}

func TestGlobReader(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "question,answer\nqa,aa\n")
	writeCSV(t, dir, "b.csv", "answer,question\nab,qb\n")

	r := NewGlobReader(dir, fs.NewWalker([]string{"*.csv"}, nil), "question", "answer")
	entries, err := r.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Question != "qa" || entries[1].Question != "qb" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	none := NewGlobReader(dir, fs.NewWalker([]string{"*.tsv"}, nil), "question", "answer")
	_, err = none.Read(context.Background())
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError when nothing matches, got %v", err)
	}
}
