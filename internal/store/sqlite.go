package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed publish history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// PublishRun Operations
// ============================================================================

// CreatePublishRun inserts a new PublishRun and sets its ID
func (s *Store) CreatePublishRun(run *PublishRun) error {
	const query = `
		INSERT INTO publish_runs (
			run_id, target, start_time, end_time, artifact_count, files_uploaded,
			bytes_uploaded, backups_taken, restarted, status, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.RunID, run.Target, run.StartTime, run.EndTime, run.ArtifactCount,
		run.FilesUploaded, run.BytesUploaded, run.BackupsTaken,
		run.Restarted, run.Status, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert publish run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdatePublishRun updates an existing PublishRun by ID
func (s *Store) UpdatePublishRun(run *PublishRun) error {
	const query = `
		UPDATE publish_runs SET
			run_id = ?, target = ?, start_time = ?, end_time = ?, artifact_count = ?,
			files_uploaded = ?, bytes_uploaded = ?, backups_taken = ?,
			restarted = ?, status = ?, error_message = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.RunID, run.Target, run.StartTime, run.EndTime, run.ArtifactCount,
		run.FilesUploaded, run.BytesUploaded, run.BackupsTaken,
		run.Restarted, run.Status, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update publish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("publish run not found: %d", run.ID)
	}

	return nil
}

// GetPublishRun retrieves a PublishRun by ID
func (s *Store) GetPublishRun(id int64) (*PublishRun, error) {
	const query = `
		SELECT id, run_id, target, start_time, end_time, artifact_count,
		       files_uploaded, bytes_uploaded, backups_taken, restarted, status, error_message
		FROM publish_runs WHERE id = ?
	`

	run := &PublishRun{}
	err := s.db.QueryRow(query, id).Scan(
		&run.ID, &run.RunID, &run.Target, &run.StartTime, &run.EndTime,
		&run.ArtifactCount, &run.FilesUploaded, &run.BytesUploaded,
		&run.BackupsTaken, &run.Restarted, &run.Status, &run.ErrorMessage,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("publish run not found: %d", id)
		}
		return nil, fmt.Errorf("failed to query publish run: %w", err)
	}

	return run, nil
}

// ListPublishRuns retrieves PublishRuns, most recent first
func (s *Store) ListPublishRuns(limit int) ([]PublishRun, error) {
	query := `
		SELECT id, run_id, target, start_time, end_time, artifact_count,
		       files_uploaded, bytes_uploaded, backups_taken, restarted, status, error_message
		FROM publish_runs ORDER BY start_time DESC
	`
	var args []interface{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish runs: %w", err)
	}
	defer rows.Close()

	var runs []PublishRun
	for rows.Next() {
		run := PublishRun{}
		err := rows.Scan(
			&run.ID, &run.RunID, &run.Target, &run.StartTime, &run.EndTime,
			&run.ArtifactCount, &run.FilesUploaded, &run.BytesUploaded,
			&run.BackupsTaken, &run.Restarted, &run.Status, &run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publish run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publish runs: %w", err)
	}

	return runs, nil
}

// ============================================================================
// UploadRecord Operations
// ============================================================================

// AddUploadRecord inserts a new UploadRecord and sets its ID
func (s *Store) AddUploadRecord(rec *UploadRecord) error {
	const query = `
		INSERT INTO upload_records (
			artifact, path, size, sha256, uploaded_at, publish_run_id
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		rec.Artifact, rec.Path, rec.Size, rec.SHA256,
		rec.UploadedAt, rec.PublishRunID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListUploadRecords retrieves upload records for a publish run
func (s *Store) ListUploadRecords(publishRunID int64) ([]UploadRecord, error) {
	const query = `
		SELECT id, artifact, path, size, sha256, uploaded_at, publish_run_id
		FROM upload_records WHERE publish_run_id = ? ORDER BY artifact, path
	`

	rows, err := s.db.Query(query, publishRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload records: %w", err)
	}
	defer rows.Close()

	var records []UploadRecord
	for rows.Next() {
		rec := UploadRecord{}
		err := rows.Scan(
			&rec.ID, &rec.Artifact, &rec.Path, &rec.Size, &rec.SHA256,
			&rec.UploadedAt, &rec.PublishRunID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upload records: %w", err)
	}

	return records, nil
}

// ============================================================================
// BackupRecord Operations
// ============================================================================

// AddBackupRecord inserts a new BackupRecord and sets its ID
func (s *Store) AddBackupRecord(rec *BackupRecord) error {
	const query = `
		INSERT INTO backup_records (
			artifact, remote_path, snapshot_path, created_at, publish_run_id
		) VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		rec.Artifact, rec.RemotePath, rec.SnapshotPath,
		rec.CreatedAt, rec.PublishRunID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert backup record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// ListBackupRecords retrieves backup records, optionally filtered by artifact,
// most recent first
func (s *Store) ListBackupRecords(artifact string, limit int) ([]BackupRecord, error) {
	query := `
		SELECT id, artifact, remote_path, snapshot_path, created_at, publish_run_id
		FROM backup_records
	`
	var args []interface{}

	if artifact != "" {
		query += " WHERE artifact = ?"
		args = append(args, artifact)
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backup records: %w", err)
	}
	defer rows.Close()

	var records []BackupRecord
	for rows.Next() {
		rec := BackupRecord{}
		err := rows.Scan(
			&rec.ID, &rec.Artifact, &rec.RemotePath, &rec.SnapshotPath,
			&rec.CreatedAt, &rec.PublishRunID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backup records: %w", err)
	}

	return records, nil
}
