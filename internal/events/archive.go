package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sharecycle-console/internal/common/db"
	"github.com/sharecycle-console/internal/common/logger"
)

// Archive persists received domain events to Postgres for later
// inspection. It is optional; the console works without it. Old rows are
// pruned on a fixed schedule.
type Archive struct {
	db        *sql.DB
	logger    logger.Logger
	retention time.Duration
}

const cleanupInterval = time.Hour

func NewArchive(database *db.DB, retention time.Duration, log logger.Logger) *Archive {
	return &Archive{db: database.DB(), logger: log, retention: retention}
}

// Init creates the archive table when it does not exist yet.
func (a *Archive) Init(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS event_archive (
			id BIGSERIAL PRIMARY KEY,
			received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			payload TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating event archive table: %w", err)
	}
	return nil
}

// Start consumes the event channel until ctx is cancelled, inserting
// every entry and running the retention cleanup on its own ticker.
func (a *Archive) Start(ctx context.Context, eventCh <-chan string) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	a.logger.Info("Starting event archive", "retention", a.retention)

	go a.runCleanupJob(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Event archive stopped")
			return nil
		case payload, ok := <-eventCh:
			if !ok {
				return nil
			}
			if err := a.insert(ctx, payload); err != nil {
				a.logger.Error("Failed to archive event", "error", err)
			}
		}
	}
}

func (a *Archive) insert(ctx context.Context, payload string) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO event_archive (payload) VALUES ($1)`, payload)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (a *Archive) runCleanupJob(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := a.cleanup(ctx)
			if err != nil {
				a.logger.Error("Event archive cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				a.logger.Info("Pruned archived events", "deleted", deleted)
			}
		}
	}
}

func (a *Archive) cleanup(ctx context.Context) (int64, error) {
	result, err := a.db.ExecContext(ctx,
		`DELETE FROM event_archive WHERE received_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(a.retention.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("deleting old events: %w", err)
	}
	return result.RowsAffected()
}
