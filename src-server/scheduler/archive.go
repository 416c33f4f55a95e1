package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"gatherd/src-server/credential"
	"gatherd/src-server/model"
	"gatherd/src-server/utils"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// AutoArchive flips events whose time window has elapsed to archived and
// cascades their attendee cleanup. One sweep runs before the first tick so a
// restarted process catches up immediately.
func AutoArchive(as *utils.AppState) {
	runArchiveSweep(as)

	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(as.Config.GetSchedulerInterval())
	defer ticker.Stop()
	for {
		select {
		case <-*gracefulShutdownCh:
			return
		case <-ticker.C:
			runArchiveSweep(as)
		}
	}
}

func runArchiveSweep(as *utils.AppState) {
	archived, err := RunArchiveOnce(
		context.Background(),
		as.BunDB,
		as.Issuer,
		time.Now().In(as.Config.GetLocation()),
	)
	if err != nil {
		slog.Error("AutoArchive: sweep failed, will retry", "error", err)
		return
	}
	if archived > 0 {
		slog.Info("AutoArchive: archived events", "count", archived)
		as.MetricChans.EventsArchived <- float64(archived)
	}
}

// RunArchiveOnce archives every event whose date has passed, or whose date
// is today with an end time already behind now. The whole sweep commits as
// one transaction: either every selected event is archived with its attendee
// rows gone, or nothing is and the next tick retries. Archiving is terminal.
func RunArchiveOnce(
	ctx context.Context,
	db *bun.DB,
	issuer *credential.Issuer,
	now time.Time,
) (int, error) {
	today := now.Format(model.DateLayout)
	clock := now.Format(model.TimeLayout)

	archivedCount := 0
	orphanedProofs := make([]string, 0)
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		eventModels := make([]model.Event, 0)
		if err := tx.NewSelect().
			Model(&eventModels).
			Where("is_archived = ?", false).
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("date < ?", today).
					WhereOr("date = ? AND end_time != '' AND end_time < ?", today, clock)
			}).
			Scan(ctx); err != nil {
			return fmt.Errorf("can't get completed events: %w", err)
		}
		if len(eventModels) == 0 {
			return nil
		}

		for _, eventModel := range eventModels {
			if _, err := tx.NewUpdate().
				Model((*model.Event)(nil)).
				Set("is_archived = ?", true).
				Where("id = ?", eventModel.ID).
				Exec(ctx); err != nil {
				return fmt.Errorf("can't archive event %d: %w", eventModel.ID, err)
			}

			attendeeModels := make([]model.Attendee, 0)
			if err := tx.NewSelect().
				Model(&attendeeModels).
				Where("event_id = ?", eventModel.ID).
				Scan(ctx); err != nil {
				return fmt.Errorf("can't get attendees of event %d: %w", eventModel.ID, err)
			}
			for _, attendeeModel := range attendeeModels {
				if attendeeModel.QRCodePath != "" {
					orphanedProofs = append(orphanedProofs, attendeeModel.QRCodePath)
				}
			}

			if _, err := tx.NewDelete().
				Model((*model.Attendee)(nil)).
				Where("event_id = ?", eventModel.ID).
				Exec(ctx); err != nil {
				return fmt.Errorf("can't delete attendees of event %d: %w", eventModel.ID, err)
			}
		}

		archivedCount = len(eventModels)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("RunArchiveOnce: %w", err)
	}

	// files go after commit; a delete can't be rolled back anyway and a
	// missing file is skipped
	for _, proofPath := range orphanedProofs {
		if err := issuer.Remove(proofPath); err != nil {
			slog.Warn("RunArchiveOnce: can't remove credential image", "path", proofPath, "error", err)
		}
	}

	return archivedCount, nil
}
