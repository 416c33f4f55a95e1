package route

import (
	"errors"
	"gatherd/src-server/fault"
	"log/slog"
	"net/http"
)

// writeError maps domain outcomes to their HTTP shape. Anything outside the
// taxonomy is a 500 with the detail kept in the log, not the response.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not found"))
	case errors.Is(err, fault.ErrUnauthorized):
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("You are not the organizer of this event"))
	case errors.Is(err, fault.ErrConflict):
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("You are already registered for this event"))
	case errors.Is(err, fault.ErrFull):
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("Sorry, this event is full"))
	case errors.Is(err, fault.ErrNotAllowed):
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("You can't register for your own event"))
	case errors.Is(err, fault.ErrNotRegistered):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("You are not registered for this event"))
	case errors.Is(err, fault.ErrValidation):
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Invalid request"))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Something went wrong"))
		slog.Error("request failed", "error", err)
	}
}

func callerID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(UserIDCtxKey).(int64)
	return userID, ok
}
