package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a new job awaiting analysis.
func (s *Store) NewJob(ctx context.Context, kind SourceKind, sourceRef, customImage string, opts Options) (*Job, error) {
	return s.insertJob(ctx, kind, sourceRef, customImage, opts, "", false)
}

// NewJobWithScript inserts a new job carrying a pre-approved script. The
// scripting stage is skipped for such jobs.
func (s *Store) NewJobWithScript(ctx context.Context, kind SourceKind, sourceRef, customImage string, opts Options, script string) (*Job, error) {
	return s.insertJob(ctx, kind, sourceRef, customImage, opts, script, true)
}

func (s *Store) insertJob(ctx context.Context, kind SourceKind, sourceRef, customImage string, opts Options, script string, approved bool) (*Job, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, source_kind, source_ref, custom_image, options_json, status,
            progress, progress_message, script_approved, script_text,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		string(kind),
		sourceRef,
		nullableString(customImage),
		string(optionsJSON),
		StatusQueued,
		0.0,
		nil,
		boolToInt(approved),
		nullableString(script),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil when no job matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	optionsJSON, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	job.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET source_kind = ?, source_ref = ?, custom_image = ?, options_json = ?,
             status = ?, progress = ?, progress_message = ?, degraded = ?,
             truncated = ?, script_approved = ?, cancel_requested = ?,
             content_json = ?, script_text = ?, audio_path = ?, clip_paths_json = ?,
             result_path = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		string(job.SourceKind),
		job.SourceRef,
		nullableString(job.CustomImage),
		string(optionsJSON),
		job.Status,
		job.Progress,
		nullableString(job.ProgressMessage),
		boolToInt(job.Degraded),
		boolToInt(job.Truncated),
		boolToInt(job.ScriptApproved),
		boolToInt(job.CancelRequested),
		nullableString(job.ContentJSON),
		nullableString(job.ScriptText),
		nullableString(job.AudioPath),
		nullableString(job.ClipPathsJSON),
		nullableString(job.ResultPath),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
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
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextForStatuses returns the oldest job matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FailStuckProcessing fails jobs left in processing states by a previous
// daemon run. Partial stage output cannot be resumed safely, so the jobs are
// marked failed rather than requeued.
func (s *Store) FailStuckProcessing(ctx context.Context, message string) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, progress_message = ?, result_path = '', updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusFailed,
		message,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusAnalyzing,
		StatusScripting,
		StatusNarrating,
		StatusRendering,
		StatusComposing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// RequestCancel flags a job for cancellation. Queued jobs fail immediately;
// in-flight jobs are failed by the workflow manager at the next stage
// boundary. The returned bool is true only when the job was failed
// immediately.
func (s *Store) RequestCancel(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, progress_message = ?, cancel_requested = 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		UserCancelReason,
		UserCancelReason,
		now,
		id,
		StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("cancel queued job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return true, nil
	}

	// In-flight jobs only get the flag; the workflow manager fails them at
	// the next stage boundary, so this path never reports an immediate fail.
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		now,
		id,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("flag cancellation: %w", err)
	}
	return false, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
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

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusFailed:
			health.Failed += count
		case StatusCompleted:
			health.Completed += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, source_kind, source_ref, custom_image, options_json, status, progress, progress_message, degraded, truncated, script_approved, cancel_requested, content_json, script_text, audio_path, clip_paths_json, result_path, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		sourceKind      string
		sourceRef       string
		customImage     sql.NullString
		optionsJSON     string
		statusStr       string
		progress        sql.NullFloat64
		progressMessage sql.NullString
		degraded        sql.NullInt64
		truncated       sql.NullInt64
		scriptApproved  sql.NullInt64
		cancelRequested sql.NullInt64
		contentJSON     sql.NullString
		scriptText      sql.NullString
		audioPath       sql.NullString
		clipPathsJSON   sql.NullString
		resultPath      sql.NullString
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceKind,
		&sourceRef,
		&customImage,
		&optionsJSON,
		&statusStr,
		&progress,
		&progressMessage,
		&degraded,
		&truncated,
		&scriptApproved,
		&cancelRequested,
		&contentJSON,
		&scriptText,
		&audioPath,
		&clipPathsJSON,
		&resultPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourceKind:      SourceKind(sourceKind),
		SourceRef:       sourceRef,
		CustomImage:     customImage.String,
		Status:          Status(statusStr),
		Progress:        progress.Float64,
		ProgressMessage: progressMessage.String,
		Degraded:        degraded.Int64 != 0,
		Truncated:       truncated.Int64 != 0,
		ScriptApproved:  scriptApproved.Int64 != 0,
		CancelRequested: cancelRequested.Int64 != 0,
		ContentJSON:     contentJSON.String,
		ScriptText:      scriptText.String,
		AudioPath:       audioPath.String,
		ClipPathsJSON:   clipPathsJSON.String,
		ResultPath:      resultPath.String,
		ErrorMessage:    errorMessage.String,
	}

	if err := json.Unmarshal([]byte(optionsJSON), &job.Options); err != nil {
		return nil, fmt.Errorf("decode options for job %s: %w", id, err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
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
