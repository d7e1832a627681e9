package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/portfolio-tracker/internal/database"
	"github.com/rs/zerolog"
)

// DatabaseMaintenanceJob checks integrity of the tracker database and
// reclaims free pages (weekly)
type DatabaseMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseMaintenanceJob creates a new database maintenance job
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job. A failed integrity check stops the run
// before VACUUM touches the file.
func (j *DatabaseMaintenanceJob) Run(ctx context.Context) error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	if err := j.integrityCheck(ctx); err != nil {
		return err
	}

	if err := j.vacuum(ctx); err != nil {
		return err
	}

	if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA optimize"); err != nil {
		j.log.Warn().Err(err).Msg("PRAGMA optimize failed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed successfully")

	return nil
}

func (j *DatabaseMaintenanceJob) integrityCheck(ctx context.Context) error {
	var result string
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check on %s: %w", j.db.Name(), err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check on %s failed: %s", j.db.Name(), result)
	}
	return nil
}

// vacuum performs VACUUM on the database
func (j *DatabaseMaintenanceJob) vacuum(ctx context.Context) error {
	sizeBefore, err := j.sizeMB(ctx)
	if err != nil {
		return err
	}

	if _, err := j.db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter, err := j.sizeMB(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", j.db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")

	return nil
}

func (j *DatabaseMaintenanceJob) sizeMB(ctx context.Context) (float64, error) {
	var pageCount, pageSize int64
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page size: %w", err)
	}
	return float64(pageCount*pageSize) / 1024 / 1024, nil
}

// BackupJob uploads a tracker.db backup and rotates old ones (daily)
type BackupJob struct {
	backups       *RemoteBackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(backups *RemoteBackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:       backups,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "remote_backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "remote_backup"
}

// Run executes the backup job. A rotation failure is logged and does not
// fail a successful upload.
func (j *BackupJob) Run(ctx context.Context) error {
	archive, err := j.backups.CreateAndUploadBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	deleted, err := j.backups.RotateOldBackups(ctx, j.retentionDays)
	if err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	j.log.Info().
		Str("archive", archive).
		Int("rotated", deleted).
		Msg("Backup job completed")

	return nil
}
