package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"gatherd/src-server/model"
	"gatherd/src-server/utils"
	"net/http"
	"strconv"
)

func Notifications(muxer *http.ServeMux, as *utils.AppState) {
	getEventID := func(w http.ResponseWriter, r *http.Request) (int64, bool) {
		eventID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid event ID"))
			return 0, false
		}
		exists, err := as.BunDB.
			NewSelect().
			Model((*model.Event)(nil)).
			Where("id = ?", eventID).
			Where("is_archived = ?", false).
			Exists(r.Context())
		switch {
		case err != nil:
			writeError(w, err)
			return 0, false
		case !exists:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Event not found"))
			return 0, false
		}
		return eventID, true
	}

	// subscribe the caller to day-before reminders
	muxer.HandleFunc("PUT /events/{id}/notify", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		eventID, ok := getEventID(w, r)
		if !ok {
			return
		}

		notificationModel := model.EventNotification{
			UserID:  userID,
			EventID: eventID,
		}
		if _, err := as.BunDB.
			NewInsert().
			Model(&notificationModel).
			On("CONFLICT DO NOTHING").
			Exec(r.Context()); err != nil && !errors.Is(err, sql.ErrNoRows) {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Reminder enabled"})
	}))

	// drop the caller's subscription
	muxer.HandleFunc("DELETE /events/{id}/notify", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		eventID, ok := getEventID(w, r)
		if !ok {
			return
		}

		if _, err := as.BunDB.
			NewDelete().
			Model((*model.EventNotification)(nil)).
			Where("user_id = ?", userID).
			Where("event_id = ?", eventID).
			Exec(r.Context()); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Reminder disabled"})
	}))
}
