package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"gatherd/src-server/model"
	"gatherd/src-server/utils"
	"net/http"
	"strconv"
	"time"
)

func Events(muxer *http.ServeMux, as *utils.AppState) {
	type EventReqBody struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Date        string `json:"date"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
		Mode        string `json:"mode"`
		Visibility  string `json:"visibility"`
		Venue       string `json:"venue"`
		Capacity    int    `json:"capacity"`
		Tag         string `json:"tag"`
	}

	type EventRespBody struct {
		ID            int64  `json:"id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Date          string `json:"date"`
		StartTime     string `json:"start_time,omitempty"`
		EndTime       string `json:"end_time,omitempty"`
		Mode          string `json:"mode"`
		Visibility    string `json:"visibility"`
		Venue         string `json:"venue"`
		Capacity      int    `json:"capacity"`
		Tag           string `json:"tag,omitempty"`
		IsArchived    bool   `json:"is_archived"`
		AttendeeCount int    `json:"attendee_count"`
		OrganizerID   int64  `json:"organizer_id"`
	}

	eventFromReq := func(reqBody EventReqBody, w http.ResponseWriter) (*model.Event, bool) {
		mode, err := model.ParseEventMode(reqBody.Mode)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Mode must be online or offline"))
			return nil, false
		}
		visibility := model.EVENT_VISIBILITY_PUBLIC
		if reqBody.Visibility != "" {
			visibility, err = model.ParseEventVisibility(reqBody.Visibility)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("Visibility must be public or private"))
				return nil, false
			}
		}
		if reqBody.Capacity < 0 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Capacity must not be negative"))
			return nil, false
		}
		return &model.Event{
			Title:       utils.CleanupString(reqBody.Title),
			Description: reqBody.Description,
			Date:        reqBody.Date,
			StartTime:   reqBody.StartTime,
			EndTime:     reqBody.EndTime,
			Mode:        mode,
			Visibility:  visibility,
			Venue:       reqBody.Venue,
			Capacity:    reqBody.Capacity,
			Tag:         reqBody.Tag,
		}, true
	}

	// create an event, caller becomes the organizer
	muxer.HandleFunc("POST /events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}

		var reqBody EventReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		eventModel, ok := eventFromReq(reqBody, w)
		if !ok {
			return
		}
		eventModel.OrganizerID = userID

		startTimer := time.Now()
		if err := eventModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Can't create event: %s", err.Error())))
			return
		}
		as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"message":  "Event created successfully",
			"event_id": eventModel.ID,
		})
	}))

	// event details with the live attendee count
	muxer.HandleFunc("GET /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		eventID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid event ID"))
			return
		}

		eventModel := new(model.Event)
		switch err := as.BunDB.
			NewSelect().
			Model(eventModel).
			Where("id = ?", eventID).
			Scan(r.Context()); {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Event not found"))
			return
		case err != nil:
			writeError(w, err)
			return
		}

		attendeeCount, err := as.BunDB.
			NewSelect().
			Model((*model.Attendee)(nil)).
			Where("event_id = ?", eventID).
			Count(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EventRespBody{
			ID:            eventModel.ID,
			Title:         eventModel.Title,
			Description:   eventModel.Description,
			Date:          eventModel.Date,
			StartTime:     eventModel.StartTime,
			EndTime:       eventModel.EndTime,
			Mode:          string(eventModel.Mode),
			Visibility:    string(eventModel.Visibility),
			Venue:         eventModel.Venue,
			Capacity:      eventModel.Capacity,
			Tag:           eventModel.Tag,
			IsArchived:    eventModel.IsArchived,
			AttendeeCount: attendeeCount,
			OrganizerID:   eventModel.OrganizerID,
		})
	})

	// organizer edits, allowed until the event is archived
	muxer.HandleFunc("PUT /events/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		eventID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid event ID"))
			return
		}

		oldEventModel := new(model.Event)
		switch err := as.BunDB.
			NewSelect().
			Model(oldEventModel).
			Where("id = ?", eventID).
			Scan(r.Context()); {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Event not found"))
			return
		case err != nil:
			writeError(w, err)
			return
		}
		if oldEventModel.OrganizerID != userID {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Only the organizer can edit this event"))
			return
		}

		var reqBody EventReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		eventModel, ok := eventFromReq(reqBody, w)
		if !ok {
			return
		}
		eventModel.ID = oldEventModel.ID
		eventModel.OrganizerID = oldEventModel.OrganizerID
		eventModel.CreatedAt = oldEventModel.CreatedAt

		if err := eventModel.Upsert(r.Context(), as.BunDB); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf("Can't update event: %s", err.Error())))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Event updated successfully"})
	}))

	// organizer's attendee list
	muxer.HandleFunc("GET /events/{id}/attendees", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		eventID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid event ID"))
			return
		}

		eventModel := new(model.Event)
		switch err := as.BunDB.
			NewSelect().
			Model(eventModel).
			Where("id = ?", eventID).
			Scan(r.Context()); {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Event not found"))
			return
		case err != nil:
			writeError(w, err)
			return
		}
		if eventModel.OrganizerID != userID {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Only the organizer can list attendees"))
			return
		}

		attendeeModels := make([]model.Attendee, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&attendeeModels).
			Relation("User").
			Where("attendee.event_id = ?", eventID).
			Scan(r.Context()); err != nil {
			writeError(w, err)
			return
		}

		type AttendeeRespBody struct {
			ID       int64  `json:"id"`
			UserID   int64  `json:"user_id"`
			Username string `json:"username"`
			Attended bool   `json:"attended"`
		}
		respBody := make([]AttendeeRespBody, 0, len(attendeeModels))
		for _, attendeeModel := range attendeeModels {
			username := ""
			if attendeeModel.User != nil {
				username = attendeeModel.User.Username
			}
			respBody = append(respBody, AttendeeRespBody{
				ID:       attendeeModel.ID,
				UserID:   attendeeModel.UserID,
				Username: username,
				Attended: attendeeModel.Attended,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(respBody)
	}))

	muxer.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"message": "API is running",
		})
	})
}
