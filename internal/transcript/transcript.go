// Package transcript logs every exchange (message, reply, intent) to SQL.
package transcript

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ariefcatur/go-chat-orders/internal/handler"
	"github.com/ariefcatur/go-chat-orders/internal/routing"
)

type Entry struct {
	ID         int64     `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Message    string    `db:"message" json:"message"`
	Reply      string    `db:"reply" json:"reply"`
	Intent     string    `db:"intent" json:"intent"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Refined    bool      `db:"refined" json:"refined"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

var schemas = map[string]string{
	"sqlite": `
	CREATE TABLE IF NOT EXISTS transcript (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		message TEXT NOT NULL,
		reply TEXT NOT NULL,
		intent TEXT NOT NULL,
		confidence REAL NOT NULL,
		refined BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_user ON transcript(user_id, id);`,
	"mysql": `
	CREATE TABLE IF NOT EXISTS transcript (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		message TEXT NOT NULL,
		reply TEXT NOT NULL,
		intent VARCHAR(32) NOT NULL,
		confidence DOUBLE NOT NULL,
		refined BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(3) NOT NULL,
		INDEX idx_transcript_user (user_id, id)
	)`,
}

type Log struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects with driver "sqlite" or "mysql" and creates the table.
// MySQL DSNs need parseTime=true.
func Open(ctx context.Context, driver, dsn string) (*Log, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported transcript driver %q", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript db: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript table: %w", err)
	}
	return &Log{db: db, now: time.Now}, nil
}

func (l *Log) Close() error { return l.db.Close() }

func (l *Log) Append(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}
	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO transcript (user_id, message, reply, intent, confidence, refined, created_at)
		VALUES (:user_id, :message, :reply, :intent, :confidence, :refined, :created_at)`, e)
	return err
}

// Record implements routing.Recorder.
func (l *Log) Record(ctx context.Context, userID, text string, res routing.Result) error {
	return l.Append(ctx, Entry{
		UserID:     userID,
		Message:    text,
		Reply:      res.Reply.Truncate(handler.MaxReplyChars),
		Intent:     string(res.Label),
		Confidence: res.Confidence,
		Refined:    res.Refined,
	})
}

// Recent returns the user's last limit entries, oldest first.
func (l *Log) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	var out []Entry
	q := l.db.Rebind(`
		SELECT id, user_id, message, reply, intent, confidence, refined, created_at
		FROM transcript WHERE user_id = ? ORDER BY id DESC LIMIT ?`)
	if err := l.db.SelectContext(ctx, &out, q, userID, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

var _ routing.Recorder = (*Log)(nil)
