// msgboard/handlers/auth.go

package handlers

import (
	"errors"
	"net/http"

	"msgboard/config"
	"msgboard/database"
	"msgboard/models"
	"msgboard/utils"
)

// startSession logs user in on the current session.
func startSession(r *http.Request, app App, user *models.User) error {
	if err := app.Sessions().RenewToken(r.Context()); err != nil {
		return err
	}
	app.Sessions().Put(r.Context(), sessionUserID, user.ID)
	return nil
}

// HandleRegister creates a participant account and logs it in.
func HandleRegister(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleRegister")
	ipHash := utils.HashIP(utils.GetIPAddress(r))

	if !app.RegLimiter().Allow(ipHash) {
		logger.Warn("Registration rate limit exceeded", "ip_hash", ipHash)
		respondError(w, http.StatusTooManyRequests, "Too many registrations. Please wait a moment.", app)
		return
	}
	if !app.Challenges().Verify(r.FormValue("challenge_token"), r.FormValue("challenge_answer")) {
		newToken, newQuestion := app.Challenges().GenerateChallenge()
		logger.Warn("Invalid challenge answer", "ip_hash", ipHash)
		respondJSON(w, http.StatusForbidden, map[string]string{
			"error":       "Invalid challenge answer. Please try again.",
			"newToken":    newToken,
			"newQuestion": newQuestion,
		}, app)
		return
	}

	in := models.RegisterInput{
		Login:    r.FormValue("login"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}

	user, err := app.DB().CreateUser(in, config.DefaultRole)
	if err != nil {
		if errors.Is(err, database.ErrUserExists) {
			respondError(w, http.StatusConflict, "That login is already taken.", app)
			return
		}
		logger.Error("Failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error creating account.", app)
		return
	}
	if err := startSession(r, app, user); err != nil {
		logger.Error("Failed to start session", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to start session.", app)
		return
	}

	logger.Info("User registered", "user_id", user.ID, "ip_hash", ipHash)
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":     app.Board().UserViewOf(user),
		"redirect": app.Board().Paths.UserURL(user.Nicename),
	}, app)
}

// HandleLogin authenticates a login and password.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	logger := app.Logger().With("handler", "HandleLogin")
	ipHash := utils.HashIP(utils.GetIPAddress(r))

	if !app.RegLimiter().Allow("login:" + ipHash) {
		logger.Warn("Login rate limit exceeded", "ip_hash", ipHash)
		respondError(w, http.StatusTooManyRequests, "Too many login attempts. Please wait a moment.", app)
		return
	}

	in := models.LoginInput{Login: r.FormValue("login"), Password: r.FormValue("password")}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, models.ValidationMessage(err), app)
		return
	}
	user, err := app.DB().Authenticate(in.Login, in.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidLogin) {
			logger.Info("Failed login", "login", in.Login, "ip_hash", ipHash)
			respondError(w, http.StatusUnauthorized, "Invalid login or password.", app)
			return
		}
		logger.Error("Failed to authenticate", "error", err)
		respondError(w, http.StatusInternalServerError, "Database error.", app)
		return
	}
	if err := startSession(r, app, user); err != nil {
		logger.Error("Failed to start session", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to start session.", app)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":     app.Board().UserViewOf(user),
		"redirect": utils.SafeRedirect(r.FormValue("redirect"), app.Board().Paths.IndexURL()),
	}, app)
}

// HandleLogout ends the session.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	if err := app.Sessions().Destroy(r.Context()); err != nil {
		app.Logger().Error("Failed to destroy session", "handler", "HandleLogout", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to log out.", app)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"redirect": utils.SafeRedirect(r.FormValue("redirect"), app.Board().Paths.IndexURL()),
	}, app)
}
