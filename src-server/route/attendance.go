package route

import (
	"encoding/json"
	"gatherd/src-server/attendance"
	"gatherd/src-server/utils"
	"net/http"
)

func Attendance(muxer *http.ServeMux, as *utils.AppState) {
	type AttendanceReqBody struct {
		AttendeeID int64  `json:"attendee_id"`
		EventID    int64  `json:"event_id"`
		UserID     int64  `json:"user_id"`
		Token      string `json:"token"`
	}

	type AttendanceRespBody struct {
		Status     string `json:"status"`
		Username   string `json:"username"`
		EventTitle string `json:"event_title"`
	}

	// confirm attendance from a scanned credential; organizer-only
	muxer.HandleFunc("POST /attendance", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't get caller from middleware"))
			return
		}

		var reqBody AttendanceReqBody
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Invalid request body"))
			return
		}
		if reqBody.Token == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Token is required"))
			return
		}

		confirmation, err := attendance.MarkAttended(r.Context(), as.BunDB, attendance.Scan{
			AttendeeID: reqBody.AttendeeID,
			EventID:    reqBody.EventID,
			UserID:     reqBody.UserID,
			Token:      reqBody.Token,
		}, userID)
		if err != nil {
			writeError(w, err)
			return
		}

		status := "confirmed"
		if confirmation.Already {
			status = "already_confirmed"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AttendanceRespBody{
			Status:     status,
			Username:   confirmation.Username,
			EventTitle: confirmation.EventTitle,
		})
	}))
}
