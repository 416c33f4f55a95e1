package route

import (
	"context"
	"database/sql"
	"errors"
	"gatherd/src-server/model"
	"gatherd/src-server/utils"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type UserIDCtxKeyType string

const (
	UserIDCtxKey            UserIDCtxKeyType = "user-id"
	SessionSecretCookieName string           = "session-secret"
)

// AuthMiddleware resolves the session secret (cookie or bearer token) to a
// user id and puts it on the request context. Sessions older than a week are
// pruned on sight.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionSecret := func() string {
			if sessionCookie, err := r.Cookie(SessionSecretCookieName); err == nil {
				return strings.TrimSpace(sessionCookie.Value)
			}
			if bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); bearer != r.Header.Get("Authorization") {
				return strings.TrimSpace(bearer)
			}
			return ""
		}()
		if sessionSecret == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session secret not provided"))
			return
		}

		startTimer := time.Now()
		sessionModel := new(model.Session)
		switch err := as.BunDB.
			NewSelect().
			Model(sessionModel).
			Where("secret = ?", sessionSecret).
			Scan(r.Context()); {
		case errors.Is(err, sql.ErrNoRows):
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session secret not found"))
			return
		case err != nil:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Can't check session in DB"))
			slog.Error("can't check session in DB", "error", err)
			return
		}
		as.MetricChans.DatabaseRead <- float64(time.Since(startTimer).Microseconds())

		if time.Unix(sessionModel.CreatedAtUnixUTC, 0).UTC().
			Add(time.Hour * 24 * 7).Before(time.Now()) {
			if _, err := as.BunDB.
				NewDelete().
				Model((*model.Session)(nil)).
				Where("secret = ?", sessionSecret).
				Exec(r.Context()); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Can't delete expired session"))
				slog.Error("can't delete expired session", "error", err)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Session expired"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), UserIDCtxKey, sessionModel.UserID)))
	}
}
