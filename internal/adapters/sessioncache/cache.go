// Package sessioncache provides a SQLite-backed transcript cache so chat
// history stays readable offline. The in-memory log owned by the chat
// stream client is authoritative; this cache is a best-effort mirror and
// every write failure is survivable.
package sessioncache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/crewdeck/crewdeck/internal/domain"
)

// schemaVersion is incremented when the schema changes; a mismatch drops
// and recreates the tables.
const schemaVersion = 1

// Cache persists chat transcripts per session.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the cache database under dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, "transcripts.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// WAL keeps readers unblocked while the stream client writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	db.Exec("PRAGMA synchronous=NORMAL")
	db.Exec("PRAGMA temp_store=MEMORY")

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().Str("db_path", dbPath).Msg("transcript cache opened")
	return &Cache{db: db}, nil
}

// createSchema creates the tables, dropping old ones on a version change.
func createSchema(db *sql.DB) error {
	var existing int
	_ = db.QueryRow("SELECT value FROM cache_metadata WHERE key = 'schema_version'").Scan(&existing)
	if existing != 0 && existing != schemaVersion {
		log.Info().Int("old_version", existing).Int("new_version", schemaVersion).Msg("transcript cache schema changed, recreating")
		db.Exec("DROP TABLE IF EXISTS messages")
		db.Exec("DROP TABLE IF EXISTS cache_metadata")
	}

	schema := `
		CREATE TABLE IF NOT EXISTS cache_metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			role TEXT,
			provider TEXT,
			text TEXT,
			tool_call TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, message_id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_order
			ON messages(session_id, seq, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, err := db.Exec("INSERT OR REPLACE INTO cache_metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

// ReplaceSnapshot swaps a session's cached transcript for a snapshot.
func (c *Cache) ReplaceSnapshot(sessionID string, messages []domain.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	for _, m := range messages {
		if m.ID == "" {
			continue
		}
		if err := upsertTx(tx, sessionID, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertMessage inserts or replaces one message.
func (c *Cache) UpsertMessage(sessionID string, m domain.ChatMessage) error {
	if m.ID == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO messages
			(session_id, message_id, seq, kind, role, provider, text, tool_call, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, m.ID, m.Seq, m.Kind, m.Role, m.Provider, m.Text, string(m.ToolCall),
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

func upsertTx(tx *sql.Tx, sessionID string, m domain.ChatMessage) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO messages
			(session_id, message_id, seq, kind, role, provider, text, tool_call, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, m.ID, m.Seq, m.Kind, m.Role, m.Provider, m.Text, string(m.ToolCall),
		m.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", m.ID, err)
	}
	return nil
}

// Messages returns a session's cached transcript in (seq, createdAt) order.
func (c *Cache) Messages(sessionID string) ([]domain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`
		SELECT message_id, seq, kind, role, provider, text, tool_call, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC, created_at ASC, message_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var toolCall, createdAt string
		if err := rows.Scan(&m.ID, &m.Seq, &m.Kind, &m.Role, &m.Provider, &m.Text, &toolCall, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCall != "" {
			m.ToolCall = []byte(toolCall)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			m.CreatedAt = ts
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Sessions returns the session ids with cached transcripts, newest first.
func (c *Cache) Sessions() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`
		SELECT session_id, MAX(created_at) AS latest
		FROM messages
		GROUP BY session_id
		ORDER BY latest DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id, latest string
		if err := rows.Scan(&id, &latest); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Prune removes transcripts for sessions not in keep.
func (c *Cache) Prune(keep []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	rows, err := c.db.Query("SELECT DISTINCT session_id FROM messages")
	if err != nil {
		return err
	}
	var drop []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keepSet[id] {
			drop = append(drop, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range drop {
		if _, err := c.db.Exec("DELETE FROM messages WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("prune session %s: %w", id, err)
		}
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
