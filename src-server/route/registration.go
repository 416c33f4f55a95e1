package route

import (
	"encoding/json"
	"gatherd/src-server/registration"
	"gatherd/src-server/utils"
	"net/http"
	"strconv"
	"time"
)

func Registration(muxer *http.ServeMux, as *utils.AppState) {
	type RegisterRespBody struct {
		Status     string `json:"status"`
		AttendeeID int64  `json:"attendee_id,omitempty"`
		ProofRef   string `json:"proof_ref,omitempty"`
		RequestID  int64  `json:"request_id,omitempty"`
	}

	// register the caller for an event; direct for public events, a pending
	// join request for private ones
	muxer.HandleFunc("POST /events/{id}/register", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
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

		startTimer := time.Now()
		result, err := registration.Register(r.Context(), as.BunDB, as.Issuer, userID, eventID)
		if err != nil {
			writeError(w, err)
			return
		}
		as.MetricChans.DatabaseWrite <- float64(time.Since(startTimer).Microseconds())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RegisterRespBody{
			Status:     string(result.Status),
			AttendeeID: result.AttendeeID,
			ProofRef:   result.ProofPath,
			RequestID:  result.RequestID,
		})
	}))

	// unregister the caller, freeing the seat
	muxer.HandleFunc("DELETE /events/{id}/register", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
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

		if err := registration.Unregister(r.Context(), as.BunDB, as.Issuer, userID, eventID); err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "Successfully unregistered from the event",
		})
	}))
}
