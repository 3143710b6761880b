package mirror

import (
	"database/sql"
	"time"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
)

// Store persists sync jobs. Every state transition is mirrored here so a
// process restart can reconstruct the active set.
type Store struct {
	db *sql.DB
}

// NewStore creates a sync job store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateJob inserts a new job row.
func (s *Store) CreateJob(job *Job) error {
	query := `
		INSERT INTO sync_jobs (
			id, entity_type, entity_id, operation, status,
			priority, retry_count, max_retries,
			last_error, external_ref, payload,
			scheduled_for, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	lastError := sql.NullString{String: job.LastError, Valid: job.LastError != ""}
	externalRef := sql.NullString{String: job.ExternalRef, Valid: job.ExternalRef != ""}
	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}

	_, err := s.db.Exec(query,
		job.ID,
		job.EntityType,
		job.EntityID,
		job.Operation,
		job.Status,
		job.Priority,
		job.RetryCount,
		job.MaxRetries,
		lastError,
		externalRef,
		payload,
		job.ScheduledFor,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create sync job")
	}
	return nil
}

// UpdateJob persists a job's current state.
func (s *Store) UpdateJob(job *Job) error {
	query := `
		UPDATE sync_jobs
		SET operation = ?,
		    status = ?,
		    priority = ?,
		    retry_count = ?,
		    last_error = ?,
		    external_ref = ?,
		    payload = ?,
		    scheduled_for = ?,
		    updated_at = ?
		WHERE id = ?
	`

	lastError := sql.NullString{String: job.LastError, Valid: job.LastError != ""}
	externalRef := sql.NullString{String: job.ExternalRef, Valid: job.ExternalRef != ""}
	payload := sql.NullString{String: string(job.Payload), Valid: len(job.Payload) > 0}

	_, err := s.db.Exec(query,
		job.Operation,
		job.Status,
		job.Priority,
		job.RetryCount,
		lastError,
		externalRef,
		payload,
		job.ScheduledFor,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update sync job %s", job.ID)
	}
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(id string) (*Job, error) {
	query := `SELECT ` + jobSelectColumns + ` FROM sync_jobs WHERE id = ?`

	var job Job
	var args jobScanArgs
	err := s.db.QueryRow(query, id).Scan(scanTargets(&job, &args)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrJobNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sync job")
	}
	applyScanArgs(&job, &args)
	return &job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (s *Store) ListJobs(status *Status, limit int) ([]*Job, error) {
	var query string
	var queryArgs []interface{}

	base := `SELECT ` + jobSelectColumns + ` FROM sync_jobs`
	if status != nil {
		query = base + ` WHERE status = ? ORDER BY created_at DESC LIMIT ?`
		queryArgs = []interface{}{*status, limit}
	} else {
		query = base + ` ORDER BY created_at DESC LIMIT ?`
		queryArgs = []interface{}{limit}
	}

	rows, err := s.db.Query(query, queryArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sync jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// ListByEntity returns every job recorded for a domain record, oldest first.
func (s *Store) ListByEntity(entityType EntityType, entityID string) ([]*Job, error) {
	query := `SELECT ` + jobSelectColumns + `
		FROM sync_jobs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC`

	rows, err := s.db.Query(query, entityType, entityID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sync jobs by entity")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// LoadResumable returns every job a restarted process must pick back up:
// pending and retrying jobs, plus processing rows orphaned by a crash.
func (s *Store) LoadResumable() ([]*Job, error) {
	query := `SELECT ` + jobSelectColumns + `
		FROM sync_jobs
		WHERE status IN ('pending', 'retrying', 'processing')
		ORDER BY created_at ASC`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load resumable sync jobs")
	}
	defer rows.Close()

	return scanJobs(rows)
}

// DeleteJob removes a job row (used by cancellation).
func (s *Store) DeleteJob(id string) error {
	result, err := s.db.Exec(`DELETE FROM sync_jobs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete sync job")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrJobNotFound, "id %s", id)
	}
	return nil
}

// CleanupOldJobs removes completed jobs last touched before cutoff.
// Failed jobs are retained for manual inspection and retry. The caller
// supplies the cutoff so retention follows the queue's clock.
func (s *Store) CleanupOldJobs(cutoff time.Time) (int, error) {
	result, err := s.db.Exec(`
		DELETE FROM sync_jobs
		WHERE status = 'completed'
		  AND updated_at < ?
	`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to cleanup old sync jobs")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(rows), nil
}

// CountByStatus returns job counts grouped by lifecycle state.
func (s *Store) CountByStatus() (map[Status]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count sync jobs")
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan status count")
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating status counts")
	}
	return counts, nil
}

// scanJobs scans all rows into jobs.
func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var job Job
		if err := scanJobFromRows(rows, &job); err != nil {
			return nil, errors.Wrap(err, "failed to scan sync job")
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating sync jobs")
	}
	return jobs, nil
}
