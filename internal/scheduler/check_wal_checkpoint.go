package scheduler

import (
	"context"
	"fmt"

	"github.com/aristath/portfolio-tracker/internal/database"
	"github.com/rs/zerolog"
)

// walFrameWarnThreshold is the WAL size (in frames) above which a warning is logged
const walFrameWarnThreshold = 1000

// CheckWALCheckpointJob runs a passive WAL checkpoint on the tracker database
// and reports how far the log has grown.
type CheckWALCheckpointJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewCheckWALCheckpointJob creates a new CheckWALCheckpointJob
func NewCheckWALCheckpointJob(db *database.DB, log zerolog.Logger) *CheckWALCheckpointJob {
	return &CheckWALCheckpointJob{
		log: log.With().Str("job", "check_wal_checkpoint").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *CheckWALCheckpointJob) Name() string {
	return "check_wal_checkpoint"
}

// Run executes the checkpoint
func (j *CheckWALCheckpointJob) Run(ctx context.Context) error {
	if j.db == nil {
		return nil
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("wal checkpoint on %s: %w", j.db.Name(), err)
	}

	if frames > walFrameWarnThreshold {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
	} else {
		j.log.Debug().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Msg("WAL checkpoint status OK")
	}

	return nil
}
