package route

import (
	"database/sql"
	"encoding/json"
	"errors"
	"gatherd/src-server/model"
	"gatherd/src-server/registration"
	"gatherd/src-server/utils"
	"net/http"
	"strconv"
)

func JoinRequests(muxer *http.ServeMux, as *utils.AppState) {
	// approve a pending request, seating the user if capacity allows
	muxer.HandleFunc("POST /join-requests/{id}/approve", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		requestID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid join request ID"))
			return
		}

		result, err := registration.Approve(r.Context(), as.BunDB, as.Issuer, userID, requestID)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      string(result.Status),
			"attendee_id": result.AttendeeID,
		})
	}))

	// reject a pending request; no capacity effect
	muxer.HandleFunc("POST /join-requests/{id}/reject", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}
		requestID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid join request ID"))
			return
		}

		if err := registration.Reject(r.Context(), as.BunDB, userID, requestID); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "rejected"})
	}))

	// the organizer's view of requests for one event
	muxer.HandleFunc("GET /events/{id}/join-requests", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
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
			w.Write([]byte("Only the organizer can list join requests"))
			return
		}

		joinRequestModels := make([]model.JoinRequest, 0)
		if err := as.BunDB.
			NewSelect().
			Model(&joinRequestModels).
			Relation("User").
			Where("join_request.event_id = ?", eventID).
			Scan(r.Context()); err != nil {
			writeError(w, err)
			return
		}

		type JoinRequestRespBody struct {
			ID       int64  `json:"id"`
			UserID   int64  `json:"user_id"`
			Username string `json:"username"`
			Status   string `json:"status"`
		}
		respBody := make([]JoinRequestRespBody, 0, len(joinRequestModels))
		for _, joinRequestModel := range joinRequestModels {
			username := ""
			if joinRequestModel.User != nil {
				username = joinRequestModel.User.Username
			}
			respBody = append(respBody, JoinRequestRespBody{
				ID:       joinRequestModel.ID,
				UserID:   joinRequestModel.UserID,
				Username: username,
				Status:   string(joinRequestModel.Status),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(respBody)
	}))
}
