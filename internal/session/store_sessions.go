package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lectern/internal/services"
)

const sessionColumns = "id, title, deck_path, deck_mime, deck_sha256, status, narration_approved, annotation_approved, error_message, progress_stage, progress_message, export_dir, last_heartbeat, created_at, updated_at"

// NewSession inserts a new session for a registered deck.
func (s *Store) NewSession(ctx context.Context, title, deckPath, deckMIME, deckSHA256 string) (*Session, error) {
	if strings.TrimSpace(deckSHA256) == "" {
		return nil, fmt.Errorf("deck checksum is required: %w", services.ErrValidation)
	}
	if strings.TrimSpace(deckPath) == "" {
		return nil, fmt.Errorf("deck path is required: %w", services.ErrValidation)
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO sessions (
            title, deck_path, deck_mime, deck_sha256, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title,
		deckPath,
		deckMIME,
		deckSHA256,
		StatusEmpty,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a session by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// FindByDeckSHA returns the first session registered for a deck checksum.
func (s *Store) FindByDeckSHA(ctx context.Context, sha256 string) (*Session, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE deck_sha256 = ? ORDER BY id LIMIT 1`,
		sha256,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by deck sha: %w", err)
	}
	return sess, nil
}

// Update persists changes to an existing session.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	sess.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE sessions
         SET title = ?, deck_path = ?, deck_mime = ?, deck_sha256 = ?, status = ?,
             narration_approved = ?, annotation_approved = ?, error_message = ?,
             progress_stage = ?, progress_message = ?, export_dir = ?,
             last_heartbeat = ?, updated_at = ?
         WHERE id = ?`,
		sess.Title,
		sess.DeckPath,
		sess.DeckMIME,
		sess.DeckSHA256,
		sess.Status,
		boolToInt(sess.NarrationApproved),
		boolToInt(sess.AnnotationApproved),
		nullableString(sess.ErrorMessage),
		nullableString(sess.ProgressStage),
		nullableString(sess.ProgressMessage),
		nullableString(sess.ExportDir),
		nullableTime(sess.LastHeartbeat),
		sess.UpdatedAt.Format(time.RFC3339Nano),
		sess.ID,
	); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns sessions filtered by status set (or all sessions when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Session, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + sessionColumns + ` FROM sessions`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Remove deletes a session and its scene sets by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearExported removes only exported sessions.
func (s *Store) ClearExported(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions WHERE status = ?`, StatusExported)
	if err != nil {
		return 0, fmt.Errorf("clear exported: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all sessions.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("clear sessions: %w", err)
	}
	return res.RowsAffected()
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id                 int64
		title              string
		deckPath           string
		deckMIME           string
		deckSHA            string
		statusStr          string
		narrationApproved  sql.NullInt64
		annotationApproved sql.NullInt64
		errorMessage       sql.NullString
		progressStage      sql.NullString
		progressMessage    sql.NullString
		exportDir          sql.NullString
		lastHeartbeatRaw   sql.NullString
		createdRaw         sql.NullString
		updatedRaw         sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&deckPath,
		&deckMIME,
		&deckSHA,
		&statusStr,
		&narrationApproved,
		&annotationApproved,
		&errorMessage,
		&progressStage,
		&progressMessage,
		&exportDir,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:              id,
		Title:           title,
		DeckPath:        deckPath,
		DeckMIME:        deckMIME,
		DeckSHA256:      deckSHA,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
		ExportDir:       exportDir.String,
	}
	if narrationApproved.Valid {
		sess.NarrationApproved = narrationApproved.Int64 != 0
	}
	if annotationApproved.Valid {
		sess.AnnotationApproved = annotationApproved.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		sess.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		sess.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			sess.LastHeartbeat = &heartbeat
		}
	}
	return sess, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
