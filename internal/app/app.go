package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FooledKiwi/busease/internal/config"
	"github.com/FooledKiwi/busease/internal/handler"
	"github.com/FooledKiwi/busease/internal/metrics"
	"github.com/FooledKiwi/busease/internal/middleware"
	"github.com/FooledKiwi/busease/internal/service"
	"github.com/FooledKiwi/busease/internal/storage"
)

// DBError represents a database-related error.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db error during %q: %v", e.Op, e.Err)
}

func (e *DBError) Unwrap() error { return e.Err }

// App holds the application-level dependencies.
type App struct {
	DB      *pgxpool.Pool       // set when STORE_DRIVER=postgres
	Mongo   *storage.MongoStore // set when STORE_DRIVER=mongo
	Router  *gin.Engine
	Metrics *metrics.Collector
	cfg     *config.Config
}

// New initializes the application: connects to the configured store, runs
// migrations when on PostgreSQL, wires the bus query engine, and configures
// the HTTP engine with routes.
func New(cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	var store storage.Store
	switch cfg.StoreDriver {
	case config.DriverMongo:
		ms, err := storage.NewMongoStore(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, &DBError{Op: "connect", Err: err}
		}
		log.Printf("mongo connection established (database %s)", cfg.MongoDatabase)
		a.Mongo = ms
		store = ms
	default:
		pool, err := openPostgres(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		log.Println("database connection pool established")

		if err := storage.RunMigrations(context.Background(), pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: run migrations: %w", err)
		}
		log.Println("database schema up to date")

		a.DB = pool
		store = storage.NewPostgresStore(pool)
	}

	// --- Domain dependencies ---
	store = storage.NewCachedStore(store, cfg.StopCacheSize, cfg.StopCacheTTL)
	a.Metrics = metrics.NewCollector(cfg.StoreDriver, cfg.StopThresholdMeters)

	buses := service.NewBusService(store,
		service.WithThreshold(cfg.StopThresholdMeters),
		service.WithMetrics(a.Metrics),
	)

	a.Router = NewRouter(handler.New(buses), a.Metrics, cfg.RequestTimeout)
	return a, nil
}

func openPostgres(dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &DBError{Op: "parse_dsn", Err: err}
	}

	poolCfg.MaxConns = 20
	poolCfg.MaxConnLifetime = 30 * time.Second
	poolCfg.MaxConnIdleTime = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &DBError{Op: "connect", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &DBError{Op: "ping", Err: err}
	}
	return pool, nil
}

// NewRouter builds the gin engine: middleware, /health, /metrics and the bus
// routes under /api.
func NewRouter(h *handler.Handler, m *metrics.Collector, timeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Timeout(timeout))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	{
		api.GET("/buses/search", h.SearchBuses)
		api.GET("/buses/by-name/:busName", h.GetBusByName)
		api.GET("/buses/:busId", h.GetBusDetails)
		api.POST("/buses/:busId/location", h.UpdateBusLocation)
	}

	return router
}

// Shutdown gracefully closes the store connection.
func (a *App) Shutdown() {
	if a.DB != nil {
		a.DB.Close()
		log.Println("database connection pool closed")
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Close(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
			return
		}
		log.Println("mongo connection closed")
	}
}
