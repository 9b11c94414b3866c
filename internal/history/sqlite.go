package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists conversation turns in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the conversation database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the conversation table if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns(session_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// Append adds a turn to a session.
func (s *SQLiteStore) Append(ctx context.Context, turn *Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if turn.Metadata != nil {
		var err error
		metadata, err = json.Marshal(turn.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal turn metadata: %w", err)
		}
	}

	query := `
		INSERT INTO conversation_turns (id, session_id, user_id, role, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		turn.ID, turn.SessionID, turn.UserID, string(turn.Role), turn.Message, string(metadata), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

// ListTurns returns a session's turns ordered by creation time.
func (s *SQLiteStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	query := `
		SELECT id, session_id, user_id, role, message, metadata, created_at
		FROM conversation_turns
		WHERE session_id = ?
		ORDER BY created_at, rowid
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		var role, metadata string
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserID, &role, &turn.Message, &metadata, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn.Role = Role(role)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &turn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal turn metadata: %w", err)
			}
		}

		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turn rows: %w", err)
	}

	return turns, nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
