package scheduler

import (
	"context"
	"fmt"
	"gatherd/src-server/model"
	"gatherd/src-server/notify"
	"gatherd/src-server/utils"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// Reminders dispatches day-before reminders on a fixed interval. Sweep
// failures are logged and retried on the next tick; the loop itself never
// dies.
func Reminders(as *utils.AppState) {
	gracefulShutdownCh := as.CreateGracefulShutdownChan()
	ticker := time.NewTicker(as.Config.GetSchedulerInterval())
	defer ticker.Stop()
	for {
		select {
		case <-*gracefulShutdownCh:
			return
		case <-ticker.C:
			sent, err := RunRemindersOnce(
				context.Background(),
				as.BunDB,
				as.Notifier,
				time.Now().In(as.Config.GetLocation()),
			)
			if err != nil {
				slog.Error("Reminders: sweep failed, will retry", "error", err)
				continue
			}
			if sent > 0 {
				as.MetricChans.RemindersSent <- float64(sent)
			}
		}
	}
}

// RunRemindersOnce sends one reminder per (event, user) subscription for
// events whose date is tomorrow. An attempt is recorded in the durable
// reminder ledger regardless of delivery outcome, so each pair is notified
// at most once even across restarts.
func RunRemindersOnce(
	ctx context.Context,
	db *bun.DB,
	notifier notify.Notifier,
	now time.Time,
) (int, error) {
	tomorrow := now.AddDate(0, 0, 1).Format(model.DateLayout)

	eventModels := make([]model.Event, 0)
	if err := db.NewSelect().
		Model(&eventModels).
		Where("is_archived = ?", false).
		Where("date = ?", tomorrow).
		Scan(ctx); err != nil {
		return 0, fmt.Errorf("RunRemindersOnce: can't get events: %w", err)
	}

	sent := 0
	for _, eventModel := range eventModels {
		notificationModels := make([]model.EventNotification, 0)
		if err := db.NewSelect().
			Model(&notificationModels).
			Where("event_id = ?", eventModel.ID).
			Scan(ctx); err != nil {
			return sent, fmt.Errorf("RunRemindersOnce: can't get subscriptions: %w", err)
		}

		for _, notificationModel := range notificationModels {
			alreadySent, err := db.NewSelect().
				Model((*model.ReminderLog)(nil)).
				Where("event_id = ?", eventModel.ID).
				Where("user_id = ?", notificationModel.UserID).
				Exists(ctx)
			if err != nil {
				return sent, fmt.Errorf("RunRemindersOnce: can't check reminder ledger: %w", err)
			}
			if alreadySent {
				continue
			}

			userModel := new(model.User)
			if err := db.NewSelect().
				Model(userModel).
				Where("id = ?", notificationModel.UserID).
				Scan(ctx); err != nil {
				slog.Warn("RunRemindersOnce: can't get subscriber", "user_id", notificationModel.UserID, "error", err)
				continue
			}
			if userModel.Email == "" {
				continue
			}

			subject := fmt.Sprintf("Reminder: %s is tomorrow!", eventModel.Title)
			body := func() string {
				if eventModel.StartTime != "" {
					return fmt.Sprintf(
						"Hi %s,\n\nEvent %q starts at %s on %s.",
						userModel.Username, eventModel.Title, eventModel.StartTime, eventModel.Date,
					)
				}
				return fmt.Sprintf(
					"Hi %s,\n\nEvent %q takes place on %s.",
					userModel.Username, eventModel.Title, eventModel.Date,
				)
			}()
			if err := notifier.Send(userModel.Email, subject, body); err != nil {
				// best effort; the attempt still lands in the ledger
				slog.Warn("RunRemindersOnce: can't send reminder", "to", userModel.Email, "error", err)
			}

			reminderLogModel := model.ReminderLog{
				EventID:       eventModel.ID,
				UserID:        notificationModel.UserID,
				SentAtUnixUTC: now.UTC().Unix(),
			}
			if _, err := db.NewInsert().
				Model(&reminderLogModel).
				Exec(ctx); err != nil {
				return sent, fmt.Errorf("RunRemindersOnce: can't record reminder: %w", err)
			}
			sent++
		}
	}

	return sent, nil
}
