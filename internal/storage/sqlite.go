package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"autoforward_bot/internal/model"
	"autoforward_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateMessage inserts a forwarded-message record and populates its ID.
// A zero ForwardedAt is replaced with the current time.
func (s *SQLite) CreateMessage(ctx context.Context, m *model.ForwardedMessage) error {
	if m.ForwardedAt.IsZero() {
		m.ForwardedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO forwarded_messages
		 (message_id, source_chat, destination_chat, message_text, has_media, media_type, keywords_matched, forwarded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MessageID, m.SourceChat, m.DestinationChat, m.MessageText,
		boolToInt(m.HasMedia), m.MediaType, m.KeywordsMatched, m.ForwardedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// ListMessages returns the most recent forwarded messages, newest first.
func (s *SQLite) ListMessages(ctx context.Context, limit int) ([]model.ForwardedMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, source_chat, destination_chat, message_text,
		        has_media, media_type, keywords_matched, forwarded_at
		 FROM forwarded_messages ORDER BY forwarded_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.ForwardedMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateSession inserts a session record with is_active=1 and populates its ID.
// Zero timestamps are replaced with the current time.
func (s *SQLite) CreateSession(ctx context.Context, sess *model.Session) error {
	now := time.Now().UTC()
	if sess.StartedAt.IsZero() {
		sess.StartedAt = now
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = sess.StartedAt
	}
	sess.IsActive = true
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_sessions
		 (session_id, source_chat, destination_chat, keywords, forward_media, delay_seconds,
		  started_at, is_active, messages_received, messages_forwarded, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		sess.SessionID, sess.SourceChat, sess.DestinationChat, sess.Keywords,
		boolToInt(sess.ForwardMedia), sess.DelaySeconds,
		sess.StartedAt.Format(timeLayout), sess.MessagesReceived, sess.MessagesForwarded,
		sess.LastActivity.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sess.ID = id
	return nil
}

// GetSession returns a single session by its session identifier.
func (s *SQLite) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, source_chat, destination_chat, keywords, forward_media,
		        delay_seconds, started_at, stopped_at, is_active,
		        messages_received, messages_forwarded, last_activity
		 FROM bot_sessions WHERE session_id = ?`, sessionID,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// RecordReceived increments a session's received counter and bumps last_activity.
func (s *SQLite) RecordReceived(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_sessions
		 SET messages_received = messages_received + 1, last_activity = ?
		 WHERE session_id = ?`,
		at.UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("record received: %w", err)
	}
	return nil
}

// RecordForward increments a session's forwarded counter and bumps last_activity.
func (s *SQLite) RecordForward(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_sessions
		 SET messages_forwarded = messages_forwarded + 1, last_activity = ?
		 WHERE session_id = ?`,
		at.UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("record forward: %w", err)
	}
	return nil
}

// CloseSession marks a session inactive and sets its stop timestamp.
func (s *SQLite) CloseSession(ctx context.Context, sessionID string, stoppedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE bot_sessions SET stopped_at = ?, is_active = 0 WHERE session_id = ?`,
		stoppedAt.UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLite) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source_chat, destination_chat, keywords, forward_media,
		        delay_seconds, started_at, stopped_at, is_active,
		        messages_received, messages_forwarded, last_activity
		 FROM bot_sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CreateError inserts an error-log record and populates its ID.
// A zero OccurredAt is replaced with the current time.
func (s *SQLite) CreateError(ctx context.Context, e *model.ErrorLog) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO error_logs (session_id, error_type, error_message, detail, occurred_at, resolved)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.ErrorType, e.ErrorMessage, e.Detail,
		e.OccurredAt.UTC().Format(timeLayout), boolToInt(e.Resolved),
	)
	if err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListErrors returns the most recent error-log records, newest first.
func (s *SQLite) ListErrors(ctx context.Context, limit int) ([]model.ErrorLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, error_type, error_message, detail, occurred_at, resolved
		 FROM error_logs ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query error logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var errs []model.ErrorLog
	for rows.Next() {
		var e model.ErrorLog
		var resolved int
		var occurred string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ErrorType, &e.ErrorMessage, &e.Detail, &occurred, &resolved); err != nil {
			return nil, fmt.Errorf("scan error log: %w", err)
		}
		e.OccurredAt, _ = time.Parse(timeLayout, occurred)
		e.Resolved = resolved == 1
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// ResolveError marks an error-log record as resolved.
func (s *SQLite) ResolveError(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE error_logs SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolve error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats returns the aggregate counts over all three log tables.
// The 24-hour window is measured against the wall clock.
func (s *SQLite) Stats(ctx context.Context) (*model.Stats, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(timeLayout)

	var st model.Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM forwarded_messages),
		   (SELECT COUNT(*) FROM bot_sessions),
		   (SELECT COUNT(*) FROM bot_sessions WHERE is_active = 1),
		   (SELECT COUNT(*) FROM error_logs),
		   (SELECT COUNT(*) FROM error_logs WHERE resolved = 0),
		   (SELECT COUNT(*) FROM forwarded_messages WHERE forwarded_at >= ?)`,
		cutoff,
	)
	err := row.Scan(
		&st.TotalMessagesForwarded, &st.TotalSessions, &st.ActiveSessions,
		&st.TotalErrors, &st.UnresolvedErrors, &st.MessagesLast24h,
	)
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	return &st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMessage(row scannable) (model.ForwardedMessage, error) {
	var m model.ForwardedMessage
	var hasMedia int
	var forwarded string
	err := row.Scan(&m.ID, &m.MessageID, &m.SourceChat, &m.DestinationChat, &m.MessageText,
		&hasMedia, &m.MediaType, &m.KeywordsMatched, &forwarded)
	if err != nil {
		return m, fmt.Errorf("scan message: %w", err)
	}
	m.HasMedia = hasMedia == 1
	m.ForwardedAt, _ = time.Parse(timeLayout, forwarded)
	return m, nil
}

func scanSession(row scannable) (model.Session, error) {
	var sess model.Session
	var forwardMedia, isActive int
	var started, lastActivity string
	var stopped sql.NullString
	err := row.Scan(&sess.ID, &sess.SessionID, &sess.SourceChat, &sess.DestinationChat,
		&sess.Keywords, &forwardMedia, &sess.DelaySeconds, &started, &stopped, &isActive,
		&sess.MessagesReceived, &sess.MessagesForwarded, &lastActivity)
	if err != nil {
		return sess, fmt.Errorf("scan session: %w", err)
	}
	sess.ForwardMedia = forwardMedia == 1
	sess.IsActive = isActive == 1
	sess.StartedAt, _ = time.Parse(timeLayout, started)
	sess.LastActivity, _ = time.Parse(timeLayout, lastActivity)
	if stopped.Valid {
		t, _ := time.Parse(timeLayout, stopped.String)
		sess.StoppedAt = &t
	}
	return sess, nil
}
