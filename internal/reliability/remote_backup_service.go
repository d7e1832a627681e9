package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// minBackupsToKeep is the number of newest backups rotation never deletes
const minBackupsToKeep = 3

// BackupInfo represents information about a stored backup
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// RemoteBackupService ships tracker.db backups to an object store
type RemoteBackupService struct {
	store         ObjectStore
	backupService *BackupService
	dataDir       string
	now           func() time.Time
	log           zerolog.Logger
}

// NewRemoteBackupService creates a new remote backup service
func NewRemoteBackupService(
	store ObjectStore,
	backupService *BackupService,
	dataDir string,
	log zerolog.Logger,
) *RemoteBackupService {
	return &RemoteBackupService{
		store:         store,
		backupService: backupService,
		dataDir:       dataDir,
		now:           time.Now,
		log:           log.With().Str("service", "remote_backup").Logger(),
	}
}

// CreateAndUploadBackup creates a backup archive and uploads it
func (s *RemoteBackupService) CreateAndUploadBackup(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting remote backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	defer os.RemoveAll(stagingDir)

	archivePath, err := s.backupService.CreateArchive(ctx, stagingDir)
	if err != nil {
		return "", err
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	archiveName := filepath.Base(archivePath)
	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Msg("Remote backup completed successfully")

	return archiveName, nil
}

// ListBackups lists stored backups, newest first. Objects whose names do not
// follow the archive naming scheme are ignored.
func (s *RemoteBackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, BackupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))

	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, BackupPrefix) || !strings.HasSuffix(obj.Key, ".tar.gz") {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, BackupPrefix), ".tar.gz")
		timestamp, err := time.Parse(BackupTimeLayout, stamp)
		if err != nil {
			s.log.Warn().Str("filename", obj.Key).Msg("Failed to parse timestamp from filename")
			continue
		}

		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period.
// The newest minBackupsToKeep backups are always kept; retentionDays <= 0 keeps everything.
func (s *RemoteBackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}

	if len(backups) <= minBackupsToKeep {
		s.log.Debug().Int("count", len(backups)).Msg("Too few backups to rotate")
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)

	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}

		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().
				Err(err).
				Str("filename", backup.Filename).
				Msg("Failed to delete old backup")
			continue
		}

		s.log.Info().
			Str("filename", backup.Filename).
			Time("timestamp", backup.Timestamp).
			Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}
