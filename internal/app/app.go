package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "healthtracker/docs"
	"healthtracker/internal/auth"
	"healthtracker/internal/config"
	"healthtracker/internal/handlers"
	"healthtracker/internal/logging"
	"healthtracker/internal/middleware"
	"healthtracker/internal/migrations"
	"healthtracker/internal/pdf"
	"healthtracker/internal/ratelimit"
	"healthtracker/internal/repositories"
	"healthtracker/internal/routes"
	"healthtracker/internal/services"
)

const shutdownTimeout = 10 * time.Second

// Services is everything the router needs.
type Services struct {
	Auth         *services.AuthService
	Users        *services.UserService
	Profiles     *services.ProfileService
	Measurements *services.MeasurementService
	Reports      *services.ReportService
}

type App struct {
	cfg    *config.Config
	log    *slog.Logger
	router *gin.Engine

	closers []func() error
}

// Run loads configuration, serves HTTP and returns once ctx is cancelled and
// in-flight requests have drained.
func Run(ctx context.Context) error {
	cfg := config.LoadConfig()
	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Serve(ctx)
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}

	// === Store ===
	var (
		store  repositories.Store
		pinger handlers.Pinger
	)
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("[app] using in-memory store; data is lost on restart")
		store = repositories.NewMemoryStore()
	default:
		db, err := openPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := migrations.Up(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		store = repositories.NewPostgresStore(db)
		pinger = db
	}

	// === Throttle ===
	var throttle ratelimit.Throttle = ratelimit.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("[app] redis ping failed, throttling will fail open", "addr", cfg.Redis.Addr, "err", err)
		}
		throttle = ratelimit.New(rdb, ratelimit.Config{MaxHits: cfg.Redis.MaxSends, Window: cfg.Redis.Window})
	}

	// === Notifications ===
	admin, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Warn("[app] telegram unavailable, admin notifications disabled", "err", err)
		admin = services.NoopNotifier{}
	}
	mailer := services.NewEmailService(services.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		User:     cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.FromEmail,
		DryRun:   cfg.Email.DryRun,
	}, log)

	// === Services ===
	codec, err := auth.NewCodec(
		auth.KindConfig{Secret: []byte(cfg.Tokens.AccessSecret), TTL: cfg.Tokens.AccessTTL},
		auth.KindConfig{Secret: []byte(cfg.Tokens.RefreshSecret), TTL: cfg.Tokens.RefreshTTL},
		auth.KindConfig{Secret: []byte(cfg.Tokens.ConfirmationSecret), TTL: cfg.Tokens.ConfirmationTTL},
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("token codec: %w", err)
	}
	svc := Services{
		Auth: services.NewAuthService(services.AuthDeps{
			Store:        store,
			Codec:        codec,
			Hasher:       auth.NewBcryptHasher(0),
			Mailer:       mailer,
			Throttle:     throttle,
			Admin:        admin,
			Log:          log,
			PublicURL:    cfg.Email.PublicURL,
			ResetCodeTTL: cfg.Tokens.ResetCodeTTL,
		}),
		Users:        services.NewUserService(store, log),
		Profiles:     services.NewProfileService(store),
		Measurements: services.NewMeasurementService(store),
		Reports:      services.NewReportService(store, pdf.NewReportGenerator(cfg.Report.FontPath), log),
	}

	a.router = NewRouter(svc, pinger, log)
	return a, nil
}

// NewRouter wires handlers, middleware and the Swagger UI onto a gin engine.
func NewRouter(svc Services, db handlers.Pinger, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:         handlers.NewAuthHandler(svc.Auth, log),
		Users:        handlers.NewUserHandler(svc.Users, log),
		Profile:      handlers.NewProfileHandler(svc.Profiles, log),
		Measurements: handlers.NewMeasurementHandler(svc.Measurements, log),
		Reports:      handlers.NewReportHandler(svc.Reports, log),
		Health:       handlers.Healthz(db),
	}, svc.Auth)
	return router
}

func (a *App) Handler() http.Handler { return a.router }

// Serve listens on the configured port until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("[app] server started", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("[app] close failed", "err", err)
		}
	}
	a.closers = nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
