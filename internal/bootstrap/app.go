package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/employee_records/apigateway/internal/config"
	"github.com/locvowork/employee_records/apigateway/internal/database"
	"github.com/locvowork/employee_records/apigateway/internal/events"
	"github.com/locvowork/employee_records/apigateway/internal/handler"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
	"github.com/locvowork/employee_records/apigateway/internal/metrics"
	"github.com/locvowork/employee_records/apigateway/internal/service"
	"github.com/nats-io/nats.go"
)

type App struct {
	Echo    *echo.Echo
	Store   *Store
	Search  *database.ElasticSearchClient
	NATS    *nats.Conn
	Metrics *metrics.Metrics
	Service service.EmployeeService
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{
		Echo:    e,
		Metrics: metrics.New(),
	}
}

// LoadConfig reads the environment and configures logging. It is split from
// Initialize so the seeder can share it.
func LoadConfig(ctx context.Context) error {
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	logger.InitLogging(config.DefaultEnvConfig.LOG_FILE_PATH, config.DefaultEnvConfig.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")
	return nil
}

// Initialize opens every configured handle and wires routes. On failure,
// whatever was already opened is released.
func (a *App) Initialize(ctx context.Context) (err error) {
	if err := LoadConfig(ctx); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rerr := a.release(ctx); rerr != nil {
				logger.WarnLog(ctx, "Failed to release handles after init error: %v", rerr)
			}
		}
	}()

	store, err := OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	a.Store = store

	opts := []service.Option{
		service.WithFailureCounters(a.Metrics.PublishFailures, a.Metrics.IndexFailures),
	}

	search, err := OpenSearchIndex(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize search mirror: %w", err)
	}
	if search != nil {
		a.Search = search
		opts = append(opts, service.WithSearchIndex(search))
	}

	pub, nc, err := OpenEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	if pub != nil {
		a.NATS = nc
		opts = append(opts, service.WithEventPublisher(pub))
	} else {
		opts = append(opts, service.WithEventPublisher(events.NoopPublisher{}))
	}

	a.Service = service.NewEmployeeService(store.Repo, opts...)
	empHandler := handler.NewEmployeeHandler(a.Service)

	a.RegisterMiddlewares()
	a.RegisterRoutes(empHandler)
	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(logger.EchoMiddleware())
	// Outside Recover so recovered panics are counted as 500s.
	a.Echo.Use(a.Metrics.Middleware())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

func (a *App) RegisterRoutes(empHandler *handler.EmployeeHandler) {
	a.Echo.GET("/", handler.DashboardHandler)
	a.Echo.GET("/healthz", empHandler.HealthHandler)
	a.Echo.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))

	employees := a.Echo.Group("/employees")
	employees.POST("", empHandler.CreateHandler)
	employees.GET("", empHandler.ListHandler)
	employees.GET("/avg-salary", empHandler.AvgSalaryHandler)
	employees.GET("/search", empHandler.SearchSkillHandler)
	employees.GET("/search/name", empHandler.SearchNameHandler)
	employees.GET("/export", empHandler.ExportHandler)
	employees.GET("/:id", empHandler.GetHandler)
	employees.PUT("/:id", empHandler.UpdateHandler)
	employees.DELETE("/:id", empHandler.DeleteHandler)
}

// Run blocks serving HTTP until Shutdown is called.
func (a *App) Run() error {
	err := a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server and releases every handle.
func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.Echo.Shutdown(ctx), a.release(ctx))
}

// release closes the handles Initialize opened, newest first.
func (a *App) release(ctx context.Context) error {
	var err error
	if a.NATS != nil {
		err = errors.Join(err, a.NATS.Drain())
		a.NATS = nil
	}
	if a.Search != nil {
		a.Search.Stop()
		a.Search = nil
	}
	if a.Store != nil {
		err = errors.Join(err, a.Store.Close(ctx))
		a.Store = nil
	}
	return err
}
