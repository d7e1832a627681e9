package di

import (
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/config"
	"github.com/aristath/portfolio-tracker/internal/reliability"
	"github.com/aristath/portfolio-tracker/internal/scheduler"
	"github.com/rs/zerolog"
)

// WALCheckpointSchedule is when the tracker database WAL is checkpointed
const WALCheckpointSchedule = "@hourly"

// RegisterJobs creates the scheduler and registers all jobs with it.
// The ticker ingestion job is only scheduled when INGESTION_SCHEDULE is set;
// it is always created so it can be run on demand.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.IngestionService == nil {
		return nil, fmt.Errorf("services must be initialized before jobs")
	}

	container.Scheduler = scheduler.New(log)

	instances := &JobInstances{
		TickerIngestion: scheduler.NewTickerIngestionJob(scheduler.TickerIngestionJobConfig{
			Log:       log,
			Ingestion: container.IngestionService,
		}),
		WALCheckpoint: scheduler.NewCheckWALCheckpointJob(container.TrackerDB, log),
		Maintenance:   reliability.NewDatabaseMaintenanceJob(container.TrackerDB, log),
	}

	if cfg.IngestionSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.IngestionSchedule, instances.TickerIngestion); err != nil {
			return nil, fmt.Errorf("failed to register ticker ingestion job: %w", err)
		}
	}

	if err := container.Scheduler.AddJob(WALCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	if cfg.MaintenanceSchedule != "" {
		if err := container.Scheduler.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
			return nil, fmt.Errorf("failed to register maintenance job: %w", err)
		}
	}

	if container.RemoteBackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.RemoteBackupService, cfg.Backup.RetentionDays, log)
		if err := container.Scheduler.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	log.Info().Msg("Jobs registered")

	return instances, nil
}
