package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/booking"
	"github.com/Protyush1995/Docto-friend/cache"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/counter"
	"github.com/Protyush1995/Docto-friend/handlers"
	"github.com/Protyush1995/Docto-friend/metrics"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/qr"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/seeding"
	"github.com/Protyush1995/Docto-friend/store"
	"github.com/Protyush1995/Docto-friend/utils"
)

const maxRetries = 5

type App struct {
	Fiber       *fiber.App
	Mongo       *mongo.Client
	Postgres    *pgxpool.Pool
	Redis       *redis.Client
	MinioClient *minio.Client
	Ctx         context.Context
	Config      *config.Config
	Logger      *zap.Logger
	Registry    *prometheus.Registry

	services handlers.Services
}

func NewApp() (*App, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %v", err)
	}

	app := &App{
		Ctx:      ctx,
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.connect(); err != nil {
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		return nil, err
	}

	// Fiber setup with structured error responses
	app.Fiber = fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger),
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		BodyLimit:    1 << 20,
	})

	app.Fiber.Use(middleware.RecoveryMiddleware(logger))

	// CORS configuration
	app.Fiber.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,HEAD,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie, Content-Disposition",
		MaxAge:           300,
	}))

	app.Fiber.Use(middleware.SecurityHeaders(cfg.AllowedOrigins))
	app.Fiber.Use(middleware.RequestLogger(logger))

	return app, nil
}

// connect opens every backing service the configuration selects, retrying
// each a few times with linear backoff.
func (a *App) connect() error {
	cfg := a.Config
	var err error

	if cfg.StorageBackend == "mongo" || cfg.CounterBackend == "mongo" {
		a.Mongo, err = mongo.Connect(options.Client().ApplyURI(cfg.MongoDBURL))
		if err != nil {
			return fmt.Errorf("mongodb client setup failed: %v", err)
		}
		err = retry(a.Logger, "mongodb", func() error {
			ctx, cancel := context.WithTimeout(a.Ctx, 5*time.Second)
			defer cancel()
			return a.Mongo.Ping(ctx, readpref.Primary())
		})
		if err != nil {
			return err
		}
	}

	// Setup Redis connection with retry logic
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis URL parsing failed: %v", err)
	}
	a.Redis = redis.NewClient(redisOpt)
	if err := retry(a.Logger, "redis", func() error {
		return a.Redis.Ping(a.Ctx).Err()
	}); err != nil {
		return err
	}

	if cfg.PostgresURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("unable to parse pool config: %v", err)
		}
		poolConfig.MaxConns = 10
		poolConfig.MinConns = 2
		poolConfig.MaxConnLifetime = time.Hour
		poolConfig.MaxConnIdleTime = 30 * time.Minute

		err = retry(a.Logger, "postgres", func() error {
			pool, err := pgxpool.NewWithConfig(a.Ctx, poolConfig)
			if err != nil {
				return err
			}
			if err := pool.Ping(a.Ctx); err != nil {
				pool.Close()
				return err
			}
			a.Postgres = pool
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cfg.UseMinio() {
		err = retry(a.Logger, "minio", func() error {
			client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
				Secure: cfg.MinioUseSSL,
				Region: cfg.MinioRegion,
			})
			if err != nil {
				return err
			}
			a.MinioClient = client
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func retry(logger *zap.Logger, name string, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		logger.Warn("failed to connect to "+name+", retrying...",
			zap.Error(err),
			zap.Int("attempt", i+1))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	return fmt.Errorf("%s connection failed after %d attempts: %v", name, maxRetries, err)
}

func (a *App) buildServices() error {
	cfg := a.Config
	ctx, cancel := context.WithTimeout(a.Ctx, 30*time.Second)
	defer cancel()

	var db *mongo.Database
	if a.Mongo != nil {
		db = a.Mongo.Database(cfg.MongoDBName)
	}

	var counters counter.Store
	switch cfg.CounterBackend {
	case "mongo":
		counters = counter.NewMongoStore(db, cfg.StoreTimeout, a.Logger)
	case "redis":
		counters = counter.NewRedisStore(a.Redis, "counter:", cfg.StoreTimeout)
	case "postgres":
		pg := counter.NewPostgresStore(a.Postgres, cfg.StoreTimeout)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare counter table: %v", err)
		}
		counters = pg
	default:
		a.Logger.Warn("using in-memory counters; identifiers restart on every boot")
		counters = counter.NewMemoryStore()
	}

	var records store.RecordStore
	if cfg.StorageBackend == "mongo" {
		ms := store.NewMongoStore(db, cfg.StoreTimeout, a.Logger)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create indexes: %v", err)
		}
		records = ms
	} else {
		a.Logger.Warn("using in-memory record store; data is lost on restart")
		records = store.NewMemoryStore()
	}

	var objects qr.ObjectStore
	if a.MinioClient != nil {
		ms := qr.NewMinioStore(a.MinioClient, cfg.QRBucket, cfg.PublicBaseURL, a.Logger)
		if err := ms.EnsureBucket(ctx, cfg.MinioRegion); err != nil {
			return err
		}
		objects = ms
	} else {
		objects = qr.NewMemoryStore(cfg.PublicBaseURL)
	}

	doctorScheme, err := utils.ParseScheme(cfg.DoctorIDScheme)
	if err != nil {
		return err
	}
	clinicScheme, err := utils.ParseScheme(cfg.ClinicIDScheme)
	if err != nil {
		return err
	}

	m := metrics.New(a.Registry)
	ids := utils.NewIDGenerator(counters, utils.WithMetrics(m))
	registrations := registry.NewService(records, ids, registry.NewArgon2Hasher(registry.DefaultArgon2Params), a.Logger, m,
		registry.ServiceConfig{DoctorScheme: doctorScheme, ClinicScheme: clinicScheme})
	seeder := seeding.NewService(records, ids, qr.NewRenderer(cfg.QRSize), objects, a.Logger)
	bookings := booking.NewService(
		cache.NewCache(a.Redis, "booking:"),
		records,
		ids,
		booking.LogSender{Logger: a.Logger},
		a.Logger,
		m,
		booking.Config{TTL: cfg.OTPTTL, ExposeOTP: cfg.IsDevelopment()},
	)

	checks := map[string]handlers.HealthCheck{
		"redis": func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
	}
	if a.Mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error { return a.Mongo.Ping(ctx, readpref.Primary()) }
	}
	if a.Postgres != nil {
		checks["postgres"] = a.Postgres.Ping
	}

	a.services = handlers.Services{
		Config:   cfg,
		Store:    records,
		Registry: registrations,
		Seeding:  seeder,
		Bookings: bookings,
		IDs:      ids,
		Tokens:   utils.NewJwtTokenGenerator(a.Redis, cfg.JwtSecret, cfg.SessionDuration),
		Gatherer: a.Registry,
		Checks:   checks,
		Logger:   a.Logger,
	}
	return nil
}

func (a *App) Start() error {
	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	handlers.SetupRoutes(a.Fiber, a.services)

	// Start server in a goroutine
	go func() {
		if err := a.Fiber.Listen(":" + a.Config.ServerPort); err != nil {
			a.Logger.Fatal("failed to start server",
				zap.Error(err),
				zap.String("port", a.Config.ServerPort))
		}
	}()

	a.Logger.Info("server started",
		zap.String("port", a.Config.ServerPort),
		zap.String("environment", a.Config.Environment),
		zap.String("storage", a.Config.StorageBackend),
		zap.String("counters", a.Config.CounterBackend))

	// Wait for interrupt signal
	<-sigChan
	a.Logger.Info("shutting down server...")

	// Cleanup
	if err := a.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		a.Logger.Error("error during server shutdown",
			zap.Error(err))
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(a.Ctx, 5*time.Second)
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Logger.Error("error closing mongodb connection",
				zap.Error(err))
		}
		cancel()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("error closing redis connection",
			zap.Error(err))
	}
	if err := a.Logger.Sync(); err != nil {
		log.Printf("error syncing logger: %v", err)
	}

	return nil
}

func main() {
	app, err := NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
