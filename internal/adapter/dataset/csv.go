package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"qabot/internal/adapter/fs"
	"qabot/internal/domain"
)

const utf8BOM = "\ufeff"

// CSVReader loads knowledge entries from one or more CSV files with a
// header row. Extra columns are ignored.
type CSVReader struct {
	questionCol string
	answerCol   string
	locate      func() ([]string, error)
}

// NewCSVReader reads the given files in order.
func NewCSVReader(paths []string, questionCol, answerCol string) *CSVReader {
	return &CSVReader{
		questionCol: questionCol,
		answerCol:   answerCol,
		locate: func() ([]string, error) {
			return paths, nil
		},
	}
}

// NewGlobReader reads every file the walker finds under root.
func NewGlobReader(root string, walker *fs.Walker, questionCol, answerCol string) *CSVReader {
	return &CSVReader{
		questionCol: questionCol,
		answerCol:   answerCol,
		locate: func() ([]string, error) {
			return walker.Paths(root)
		},
	}
}

func (r *CSVReader) Sources() ([]string, error) {
	return r.locate()
}

// Read returns entries from all files, file by file in source order.
// Header problems are reported as *domain.SchemaError and I/O or parse
// problems as *domain.LoadError.
func (r *CSVReader) Read(ctx context.Context) ([]domain.KnowledgeEntry, error) {
	paths, err := r.locate()
	if err != nil {
		return nil, &domain.LoadError{Path: "<dataset>", Err: err}
	}
	if len(paths) == 0 {
		return nil, &domain.LoadError{Path: "<dataset>", Err: errors.New("no dataset files matched")}
	}

	var entries []domain.KnowledgeEntry
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileEntries, err := r.readFile(path)
		if err != nil {
			return nil, err
		}
		slog.Debug("dataset file loaded", "path", path, "entries", len(fileEntries))
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

func (r *CSVReader) readFile(path string) ([]domain.KnowledgeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	return r.parse(path, f)
}

func (r *CSVReader) parse(path string, src io.Reader) ([]domain.KnowledgeEntry, error) {
	cr := csv.NewReader(src)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &domain.SchemaError{Path: path, Missing: []string{r.questionCol, r.answerCol}}
	}
	if err != nil {
		return nil, &domain.LoadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}

	qIdx, aIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, utf8BOM))
		switch name {
		case r.questionCol:
			if qIdx < 0 {
				qIdx = i
			}
		case r.answerCol:
			if aIdx < 0 {
				aIdx = i
			}
		}
	}

	var missing []string
	if qIdx < 0 {
		missing = append(missing, r.questionCol)
	}
	if aIdx < 0 {
		missing = append(missing, r.answerCol)
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Path: path, Missing: missing}
	}

	var entries []domain.KnowledgeEntry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.LoadError{Path: path, Err: err}
		}

		line, _ := cr.FieldPos(qIdx)
		question, answer := record[qIdx], record[aIdx]
		if strings.TrimSpace(question) == "" {
			return nil, &domain.SchemaError{Path: path, Row: line, Column: r.questionCol}
		}
		if strings.TrimSpace(answer) == "" {
			return nil, &domain.SchemaError{Path: path, Row: line, Column: r.answerCol}
		}

		entries = append(entries, domain.NewKnowledgeEntry(question, answer))
	}

	return entries, nil
}
