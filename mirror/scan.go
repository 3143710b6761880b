package mirror

import "database/sql"

// jobSelectColumns is the standard column list for sync job SELECT queries.
const jobSelectColumns = `id, entity_type, entity_id, operation, status,
	priority, retry_count, max_retries,
	last_error, external_ref, payload,
	scheduled_for, created_at, updated_at`

// jobScanArgs holds the nullable columns of a sync job row.
type jobScanArgs struct {
	LastError   sql.NullString
	ExternalRef sql.NullString
	Payload     sql.NullString
}

// scanTargets returns the scan destinations for a job row, in
// jobSelectColumns order.
func scanTargets(job *Job, args *jobScanArgs) []interface{} {
	return []interface{}{
		&job.ID,
		&job.EntityType,
		&job.EntityID,
		&job.Operation,
		&job.Status,
		&job.Priority,
		&job.RetryCount,
		&job.MaxRetries,
		&args.LastError,
		&args.ExternalRef,
		&args.Payload,
		&job.ScheduledFor,
		&job.CreatedAt,
		&job.UpdatedAt,
	}
}

// applyScanArgs copies the nullable columns into the job.
func applyScanArgs(job *Job, args *jobScanArgs) {
	if args.LastError.Valid {
		job.LastError = args.LastError.String
	}
	if args.ExternalRef.Valid {
		job.ExternalRef = args.ExternalRef.String
	}
	if args.Payload.Valid {
		job.Payload = []byte(args.Payload.String)
	}
}

// scanJobFromRows scans a single job inside a rows loop.
func scanJobFromRows(rows *sql.Rows, job *Job) error {
	var args jobScanArgs
	if err := rows.Scan(scanTargets(job, &args)...); err != nil {
		return err
	}
	applyScanArgs(job, &args)
	return nil
}
