package sqlite

import (
	"fmt"

	"ppemonitor/internal/model"
)

// ViolationRepository implements repository.ViolationRepository for SQLite.
type ViolationRepository struct {
	db *DB
}

// NewViolationRepository creates a new SQLite violation repository.
func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// Insert stores an event and its labels in a single transaction.
func (r *ViolationRepository) Insert(event *model.ViolationEvent) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO violations (source, snapshot, started_at)
		VALUES (?, ?, ?)
	`, event.Source, event.Snapshot, event.StartedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert violation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO violation_labels (violation_id, label) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, label := range event.Labels {
		if _, err := stmt.Exec(id, label); err != nil {
			return 0, fmt.Errorf("failed to insert violation label: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit violation: %w", err)
	}
	event.ID = id
	return id, nil
}

// whereClause builds the filter conditions shared by GetAll and GetTotalCount.
func whereClause(filter *model.ViolationFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Source != "" {
		query += " AND v.source = ?"
		args = append(args, filter.Source)
	}

	if filter.Label != "" {
		query += " AND EXISTS (SELECT 1 FROM violation_labels l WHERE l.violation_id = v.id AND l.label = ?)"
		args = append(args, filter.Label)
	}

	if !filter.Since.IsZero() {
		query += " AND v.started_at >= ?"
		args = append(args, filter.Since)
	}

	return query, args
}

// GetAll retrieves events matching the filter, newest first.
func (r *ViolationRepository) GetAll(filter *model.ViolationFilter) ([]model.ViolationEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT v.id, v.source, COALESCE(v.snapshot, ''), v.started_at FROM violations v` +
		where + " ORDER BY v.started_at DESC, v.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}

	var events []model.ViolationEvent
	for rows.Next() {
		var ev model.ViolationEvent
		if err := rows.Scan(&ev.ID, &ev.Source, &ev.Snapshot, &ev.StartedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Labels are loaded after the cursor is closed: the pool holds a single connection.
	for i := range events {
		labels, err := r.labels(events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].Labels = labels
	}
	return events, nil
}

func (r *ViolationRepository) labels(violationID int64) ([]string, error) {
	rows, err := r.db.Conn().Query(`SELECT label FROM violation_labels WHERE violation_id = ? ORDER BY id`, violationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// GetTotalCount returns the number of events matching the filter.
func (r *ViolationRepository) GetTotalCount(filter *model.ViolationFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations v`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return count, nil
}

// GetStats returns statistics about recorded violations.
func (r *ViolationRepository) GetStats() (*model.ViolationStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.ViolationStats{
		PerSource:   make(map[string]int),
		LabelCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations`).Scan(&stats.TotalEvents); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`SELECT source, COUNT(*) FROM violations GROUP BY source`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.PerSource[source] = count
	}
	rows.Close()

	// Most frequent missing gear
	labelRows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) as cnt
		FROM violation_labels
		GROUP BY label
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer labelRows.Close()

	for labelRows.Next() {
		var label string
		var count int
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.LabelCounts[label] = count
	}
	return stats, nil
}

// DeleteAll removes all events and their labels.
func (r *ViolationRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM violation_labels`); err != nil {
		return fmt.Errorf("failed to delete violation labels: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM violations`); err != nil {
		return fmt.Errorf("failed to delete violations: %w", err)
	}
	return nil
}
