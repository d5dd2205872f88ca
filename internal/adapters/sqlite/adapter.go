// Package sqlite provides a SQLite-backed implementation of the turn repository port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Adapter implements the turn repository port for SQLite
type Adapter struct {
	db *sql.DB
}

var _ ports.TurnRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if storagePath == MemoryPath {
		// Every new connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) CreateSession(ctx context.Context, s domain.Session) error {
	if _, err := a.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at) VALUES (?, ?)",
		s.ID, s.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (a *Adapter) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := a.db.QueryRowContext(ctx, "SELECT id, created_at FROM sessions WHERE id = ?", id)
	var s domain.Session
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// SaveTurn upserts a turn so a retried write does not duplicate history.
func (a *Adapter) SaveTurn(ctx context.Context, t domain.Turn) error {
	query := `
		INSERT INTO turns (id, session_id, message, action, tag, reply, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			action=excluded.action,
			tag=excluded.tag,
			reply=excluded.reply,
			error=excluded.error;
	`
	if _, err := a.db.ExecContext(ctx, query,
		t.ID, t.SessionID, t.Message, string(t.Action), t.Tag, t.Reply, t.Error, t.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to save turn %s: %w", t.ID, err)
	}
	return nil
}

func (a *Adapter) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, session_id, message, action, IFNULL(tag, ''), IFNULL(reply, ''), IFNULL(error, ''), created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		var (
			t         domain.Turn
			action    string
			createdAt time.Time
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Message, &action, &t.Tag, &t.Reply, &t.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.Action = domain.Action(action)
		t.CreatedAt = createdAt.UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}
	return turns, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		action TEXT NOT NULL,
		tag TEXT,
		reply TEXT,
		error TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS turns_session_idx ON turns (session_id, created_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Databases created before tags were recorded.
	if _, err := a.db.Exec("ALTER TABLE turns ADD COLUMN tag TEXT"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
