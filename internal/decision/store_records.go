package decision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"time"
)

const recordColumns = "id, identity_key, display_name, status, first_seen_at, decided_at, executed_at, notified, archived, card_left, card_top, card_right, card_bottom, created_at, updated_at"

// Get fetches a record by identity key. Returns nil when absent.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM decision_records WHERE identity_key = ?`, key)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// UpsertPending creates a PENDING record for the identity if none exists.
// The call is idempotent: an existing record, whatever its status, is
// returned untouched. The second return value reports whether a record was
// created by this call.
func (s *Store) UpsertPending(ctx context.Context, key, displayName string, bounds *image.Rectangle) (*Record, bool, error) {
	if key == "" {
		return nil, false, errors.New("identity key required")
	}
	unlock := s.LockKey(key)
	defer unlock()

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	left, top, right, bottom := boundsColumns(bounds)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO decision_records (
            identity_key, display_name, status, first_seen_at,
            notified, archived, card_left, card_top, card_right, card_bottom,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, 0, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(identity_key) DO NOTHING`,
		key,
		displayName,
		StatusPending,
		timestamp,
		left, top, right, bottom,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert pending: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	record, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, fmt.Errorf("record %q missing after upsert", key)
	}
	return record, inserted > 0, nil
}

// ApplyDecision transitions a PENDING record to APPROVED or DECLINED.
// Fails with ErrInvalidTransition when the record is absent or already
// decided/executed; the conditional UPDATE makes the check-and-set atomic.
func (s *Store) ApplyDecision(ctx context.Context, key string, d Decision) (*Record, error) {
	unlock := s.LockKey(key)
	defer unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE decision_records
         SET status = ?, decided_at = ?, updated_at = ?
         WHERE identity_key = ? AND status = ?`,
		d.Status(),
		now,
		now,
		key,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("apply decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		record, getErr := s.Get(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		if record == nil {
			return nil, fmt.Errorf("%w: no record for %q", ErrInvalidTransition, key)
		}
		return nil, invalidTransition(key, record.Status, "decide")
	}
	return s.Get(ctx, key)
}

// MarkExecuted transitions an APPROVED or DECLINED record to EXECUTED.
// Fails with ErrInvalidTransition otherwise; EXECUTED is terminal, so a
// repeated call fails rather than double-counting.
func (s *Store) MarkExecuted(ctx context.Context, key string) (*Record, error) {
	unlock := s.LockKey(key)
	defer unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE decision_records
         SET status = ?, executed_at = ?, updated_at = ?
         WHERE identity_key = ? AND status IN (?, ?)`,
		StatusExecuted,
		now,
		now,
		key,
		StatusApproved,
		StatusDeclined,
	)
	if err != nil {
		return nil, fmt.Errorf("mark executed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		record, getErr := s.Get(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		if record == nil {
			return nil, fmt.Errorf("%w: no record for %q", ErrInvalidTransition, key)
		}
		return nil, invalidTransition(key, record.Status, "execute")
	}
	return s.Get(ctx, key)
}

// MarkNotified records that the operator has been told about this identity.
func (s *Store) MarkNotified(ctx context.Context, key string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE decision_records SET notified = 1, updated_at = ? WHERE identity_key = ?`,
		now,
		key,
	)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// UpdateCardBounds stores the latest on-screen location for the identity.
func (s *Store) UpdateCardBounds(ctx context.Context, key string, bounds image.Rectangle) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE decision_records
         SET card_left = ?, card_top = ?, card_right = ?, card_bottom = ?, updated_at = ?
         WHERE identity_key = ?`,
		bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y,
		now,
		key,
	)
	if err != nil {
		return fmt.Errorf("update card bounds: %w", err)
	}
	return nil
}

// ListActionable returns decided-but-not-executed records ordered by first
// observation. This is the queue the reconciliation engine drains.
func (s *Store) ListActionable(ctx context.Context) ([]*Record, error) {
	return s.List(ctx, StatusApproved, StatusDeclined)
}

// List returns records filtered by status set (all records when no status
// is provided), excluding archived entries, ordered by first_seen_at.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM decision_records WHERE archived = 0`
	orderClause := ` ORDER BY first_seen_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` AND status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ArchiveStalePending flags undecided records first seen before the cutoff.
// Archived records keep their status and are never reused; they just stop
// showing up in listings.
func (s *Store) ArchiveStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE decision_records
         SET archived = 1, updated_at = ?
         WHERE status = ? AND archived = 0 AND first_seen_at < ?`,
		now,
		StatusPending,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("archive stale pending: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of non-archived records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM decision_records WHERE archived = 0 GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("decision stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates record state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusApproved, StatusDeclined:
			health.Actionable += count
		case StatusExecuted:
			health.Executed += count
		}
	}
	return health, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id          int64
		identityKey string
		displayName string
		statusStr   string
		firstSeen   sql.NullString
		decidedRaw  sql.NullString
		executedRaw sql.NullString
		notified    sql.NullInt64
		archived    sql.NullInt64
		cardLeft    sql.NullInt64
		cardTop     sql.NullInt64
		cardRight   sql.NullInt64
		cardBottom  sql.NullInt64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&identityKey,
		&displayName,
		&statusStr,
		&firstSeen,
		&decidedRaw,
		&executedRaw,
		&notified,
		&archived,
		&cardLeft,
		&cardTop,
		&cardRight,
		&cardBottom,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:          id,
		IdentityKey: identityKey,
		DisplayName: displayName,
		Status:      Status(statusStr),
		Notified:    notified.Valid && notified.Int64 != 0,
		Archived:    archived.Valid && archived.Int64 != 0,
	}

	if t, err := parseTimeString(firstSeen.String); err == nil {
		record.FirstSeenAt = t
	}
	if decidedRaw.Valid {
		if t, err := parseTimeString(decidedRaw.String); err == nil {
			record.DecidedAt = &t
		}
	}
	if executedRaw.Valid {
		if t, err := parseTimeString(executedRaw.String); err == nil {
			record.ExecutedAt = &t
		}
	}
	if cardLeft.Valid && cardTop.Valid && cardRight.Valid && cardBottom.Valid {
		rect := image.Rect(int(cardLeft.Int64), int(cardTop.Int64), int(cardRight.Int64), int(cardBottom.Int64))
		record.CardBounds = &rect
	}
	if t, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = t
	}
	return record, nil
}

func boundsColumns(bounds *image.Rectangle) (any, any, any, any) {
	if bounds == nil {
		return nil, nil, nil, nil
	}
	return bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y
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
