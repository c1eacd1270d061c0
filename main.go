// msgboard/main.go
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"msgboard/board"
	"msgboard/caps"
	"msgboard/config"
	"msgboard/database"
	"msgboard/handlers"
	"msgboard/models"
	"msgboard/utils"

	"github.com/alexedwards/scs/v2"
	_ "github.com/joho/godotenv/autoload"
)

type Application struct {
	db          *database.DatabaseService
	board       *board.Board
	rateLimiter *models.RateLimiter
	regLimiter  *models.RateLimiter
	challenges  *models.ChallengeStore
	sessions    *scs.SessionManager
	storage     models.StorageService
	logger      *slog.Logger
	uploadDir   string
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService      { return a.db }
func (a *Application) Board() *board.Board                { return a.board }
func (a *Application) RateLimiter() *models.RateLimiter   { return a.rateLimiter }
func (a *Application) RegLimiter() *models.RateLimiter    { return a.regLimiter }
func (a *Application) Challenges() *models.ChallengeStore { return a.challenges }
func (a *Application) Sessions() *scs.SessionManager      { return a.sessions }
func (a *Application) Storage() models.StorageService     { return a.storage }
func (a *Application) Logger() *slog.Logger               { return a.logger }
func (a *Application) UploadDir() string                  { return a.uploadDir }

// envDuration reads a duration variable, falling back to def on parse errors.
func envDuration(logger *slog.Logger, key, def string) time.Duration {
	d, err := time.ParseDuration(utils.GetEnv(key, def))
	if err != nil {
		logger.Warn("Invalid duration, using default", "key", key, "value", utils.GetEnv(key, ""), "default", def)
		d, _ = time.ParseDuration(def)
	}
	return d
}

func envInt(logger *slog.Logger, key string, def int) int {
	n, err := strconv.Atoi(utils.GetEnv(key, strconv.Itoa(def)))
	if err != nil {
		logger.Warn("Invalid integer, using default", "key", key, "value", utils.GetEnv(key, ""), "default", def)
		return def
	}
	return n
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	utils.IPSalt = utils.GetEnv("MB_IP_SALT", "")
	if utils.IPSalt == "" {
		saltBytes := make([]byte, 32)
		if _, err := rand.Read(saltBytes); err != nil {
			logger.Error("Failed to generate IP salt", "error", err)
			os.Exit(1)
		}
		utils.IPSalt = hex.EncodeToString(saltBytes)
	}

	// --- External Configuration ---
	port := utils.GetEnv("MB_PORT", "8080")
	dbPath := utils.GetEnv("MB_DB_PATH", "./msgboard.db?_journal_mode=WAL&_foreign_keys=on")
	uploadDir := utils.GetEnv("MB_UPLOAD_DIR", "./uploads")
	utils.BackupDir = utils.GetEnv("MB_BACKUP_DIR", "./backups")
	for _, dir := range []string{utils.BackupDir, uploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("FATAL: Could not create directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	rateLimitEvery := envDuration(logger, "MB_RATE_EVERY", config.DefaultRateLimitEvery)
	rateLimitBurst := envInt(logger, "MB_RATE_BURST", config.DefaultRateLimitBurst)
	rateLimitPrune := envDuration(logger, "MB_RATE_PRUNE", config.DefaultRateLimitPrune)
	rateLimitExpire := envDuration(logger, "MB_RATE_EXPIRE", config.DefaultRateLimitExpire)
	sessionLifetime := envDuration(logger, "MB_SESSION_LIFETIME", config.DefaultSessionLifetime)

	// --- Storage Service Init ---
	var storageService models.StorageService
	// Local backups stay in the backup dir; the upload dir is served publicly.
	var backupStorage models.StorageService
	if utils.GetEnv("MB_S3_ENABLED", "false") == "true" {
		endpoint := utils.GetEnv("MB_S3_ENDPOINT", "")
		bucket := utils.GetEnv("MB_S3_BUCKET", "")
		s3Store, err := utils.NewS3Storage(
			endpoint,
			utils.GetEnv("MB_S3_ACCESS_KEY", ""),
			utils.GetEnv("MB_S3_SECRET_KEY", ""),
			bucket,
			utils.GetEnv("MB_S3_REGION", "us-east-1"),
			utils.GetEnv("MB_S3_PUBLIC_URL", ""),
			utils.GetEnv("MB_S3_USE_SSL", "true") == "true",
		)
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		storageService = s3Store
		backupStorage = s3Store
		logger.Info("S3 Storage initialized", "endpoint", endpoint, "bucket", bucket)
	} else {
		storageService = &utils.LocalStorage{UploadDir: uploadDir}
		logger.Info("Local Storage initialized", "dir", uploadDir)
	}

	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()
	dbService.Storage = backupStorage

	if admin := utils.GetEnv("MB_ADMIN_LOGIN", ""); admin != "" {
		changed, err := dbService.EnsureUserRole(admin, caps.RoleKeymaster)
		switch {
		case errors.Is(err, database.ErrNotFound):
			logger.Warn("Admin login not registered yet; restart after registering it", "login", admin)
		case err != nil:
			logger.Error("Failed to promote admin", "login", admin, "error", err)
			os.Exit(1)
		case changed:
			logger.Info("Promoted admin to keymaster", "login", admin)
		}
	}

	sessions := scs.New()
	sessions.Lifetime = sessionLifetime
	sessions.Cookie.Name = "mb_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = utils.GetEnv("MB_SECURE_COOKIES", "false") == "true"

	app := &Application{
		db:          dbService,
		board:       board.New(dbService, &board.LogNotifier{Logger: logger}, logger),
		rateLimiter: models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		regLimiter:  models.NewRateLimiter(time.Minute, 5, rateLimitPrune, rateLimitExpire),
		challenges:  models.NewChallengeStore(),
		sessions:    sessions,
		storage:     storageService,
		logger:      logger,
		uploadDir:   uploadDir,
	}

	mux := handlers.SetupRouter(app)

	var s3PublicURL string
	if s3Store, ok := storageService.(*utils.S3Storage); ok {
		s3PublicURL = s3Store.PublicURL
	}

	finalHandler := handlers.CSRFMiddleware(handlers.NewSecurityHeadersMiddleware(s3PublicURL)(mux))

	// --- Graceful Shutdown ---
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("msgboard server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port+app.board.Paths.IndexURL(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
