package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"qabot/internal/domain"
)

// SQLiteStore persists transcripts in a local SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := &SQLiteStore{conn: conn, path: path}
	if err := st.setupTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup session tables: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) setupTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id)`,
	}
	for _, q := range queries {
		if _, err := s.conn.Exec(q); err != nil {
			return fmt.Errorf("failed to execute %q: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	created := turn.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ConversationTurn
	for rows.Next() {
		var role, content string
		var created int64
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, err
		}
		turns = append(turns, domain.ConversationTurn{
			Role:      domain.Role(role),
			Content:   content,
			CreatedAt: time.Unix(0, created),
		})
	}
	return turns, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
