package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	UserKey      ContextKey = "currentUser"
	CSRFTokenKey ContextKey = "csrfToken"
)

// sessionUserID is the session key holding the logged-in user's ID.
const sessionUserID = "userID"

// CSRFMiddleware protects against Cross-Site Request Forgery attacks.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		csrfCookie, err := r.Cookie("csrf_token")
		var csrfToken string

		if err != nil || csrfCookie.Value == "" {
			csrfToken = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     "csrf_token",
				Value:    csrfToken,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			csrfToken = csrfCookie.Value
		}

		if r.Method == http.MethodPost {
			// Covers both multipart/form-data and application/x-www-form-urlencoded.
			tokenFromForm := r.FormValue("csrf_token")
			if tokenFromForm == "" {
				tokenFromForm = r.Header.Get("X-CSRF-Token")
			}

			if subtle.ConstantTimeCompare([]byte(tokenFromForm), []byte(csrfToken)) != 1 {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), CSRFTokenKey, csrfToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUserMiddleware loads the logged-in user from the session. It must
// run inside the session manager's LoadAndSave.
func CurrentUserMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := app.Sessions().GetInt64(r.Context(), sessionUserID)
			if id == 0 {
				next.ServeHTTP(w, r)
				return
			}
			user, err := app.DB().GetUser(id)
			if err != nil {
				app.Logger().Warn("Session refers to a missing user", "user_id", id, "error", err)
				app.Sessions().Remove(r.Context(), sessionUserID)
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability restricts a route to users holding cap.
func RequireCapability(app App, cap string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil {
				respondError(w, http.StatusUnauthorized, "You must be logged in.", app)
				return
			}
			if !app.Board().Caps.UserCan(user, cap) {
				app.Logger().Warn("Capability check failed", "user_id", user.ID, "cap", cap, "path", r.URL.Path)
				respondError(w, http.StatusForbidden, "You do not have permission to do that.", app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewStructuredLogger logs one line per request through logger.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "Request handled",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// NewSecurityHeadersMiddleware sets the response security headers. Images
// may additionally load from s3PublicURL when it is set.
func NewSecurityHeadersMiddleware(s3PublicURL string) func(http.Handler) http.Handler {
	imgSrc := "'self' data:"
	if s3PublicURL != "" {
		imgSrc += " " + strings.TrimSuffix(s3PublicURL, "/")
	}
	csp := "default-src 'self'; img-src " + imgSrc + "; object-src 'none'; frame-ancestors 'none'"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
