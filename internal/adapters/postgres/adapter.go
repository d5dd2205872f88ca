// Package postgres provides a PostgreSQL-backed implementation of the turn
// repository port for deployments with more than one operator replica.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
)

const (
	connectAttempts = 10
	uniqueViolation = pq.ErrorCode("23505")
)

// ErrDuplicateSession is returned when a session ID is reused.
var ErrDuplicateSession = errors.New("postgres: session already exists")

type Adapter struct {
	db *sql.DB
}

var _ ports.TurnRepository = (*Adapter)(nil)

// NewAdapter opens dsn, waits until the server answers and migrates the
// schema.
func NewAdapter(ctx context.Context, dsn string) (*Adapter, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(16)

	if err := waitForDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	a := &Adapter{db: db}
	if err := a.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migration failed: %w", err)
	}
	slog.Info("database is ready", "driver", "postgres")
	return a, nil
}

func waitForDB(ctx context.Context, db *sql.DB) error {
	var err error
	for i := range connectAttempts {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == connectAttempts-1 {
			break
		}
		slog.Error("failed to connect to database, retrying...", "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("postgres: giving up connecting to database: %w", err)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at) VALUES ($1, $2)",
		s.ID, s.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID)
		}
		return fmt.Errorf("postgres: save session: %w", err)
	}
	return nil
}

func (a *Adapter) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := a.db.QueryRowContext(ctx, "SELECT id, created_at FROM sessions WHERE id = $1", id).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("postgres: load session: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func (a *Adapter) SaveTurn(ctx context.Context, t domain.Turn) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, message, action, tag, reply, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			action = EXCLUDED.action,
			tag = EXCLUDED.tag,
			reply = EXCLUDED.reply,
			error = EXCLUDED.error
	`, t.ID, t.SessionID, t.Message, string(t.Action), t.Tag, t.Reply, t.Error, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres: save turn %s: %w", t.ID, err)
	}
	return nil
}

func (a *Adapter) ListTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, session_id, message, action, tag, reply, error, created_at
		FROM turns
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load turns: %w", err)
	}
	defer rows.Close()

	turns := []domain.Turn{}
	for rows.Next() {
		var (
			t      domain.Turn
			action string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Message, &action, &t.Tag, &t.Reply, &t.Error, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan turn: %w", err)
		}
		t.Action = domain.Action(action)
		t.CreatedAt = t.CreatedAt.UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate turns: %w", err)
	}
	return turns, nil
}

func (a *Adapter) migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		message TEXT NOT NULL,
		action TEXT NOT NULL,
		reply TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS turns_session_idx ON turns (session_id, created_at);

	ALTER TABLE turns ADD COLUMN IF NOT EXISTS tag TEXT NOT NULL DEFAULT '';
	`)
	return err
}
