// Package app assembles the storefront from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/presenter"
	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Application owns every long-lived resource of the storefront.
type Application struct {
	cfg *config.Config

	hub      *repositories.ChangeHub
	store    repositories.DocumentStore
	accounts repositories.AccountRepository
	objects  *repositories.AferoStorage
	pool     *ants.Pool
	mq       *rabbitmq.Client

	Auth     *services.AuthService
	Catalog  *services.CatalogService
	Cart     *services.CartService
	Wishlist *services.WishlistService
	Profile  *services.ProfileService

	fiber   *fiber.App
	closers []func() error
}

// Option adjusts how New builds the application.
type Option func(*buildOptions)

type buildOptions struct {
	objectFs afero.Fs
}

// WithObjectFs replaces the object storage filesystem (used in tests).
func WithObjectFs(fs afero.Fs) Option {
	return func(o *buildOptions) { o.objectFs = fs }
}

// New connects the configured backends and wires services and routes.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.objectFs == nil {
		o.objectFs = afero.NewBasePathFs(afero.NewOsFs(), cfg.ObjectDir)
	}

	a := &Application{cfg: cfg, hub: repositories.NewChangeHub()}
	if err := a.openStore(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}

	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Release(); return nil })

	if cfg.RabbitMQURL != "" {
		if err := a.openChangeFeed(); err != nil {
			a.Shutdown()
			return nil, err
		}
	}

	a.objects = repositories.NewAferoStorage(o.objectFs, cfg.ObjectBaseURL)
	a.Auth = services.NewAuthService(a.accounts, cfg.JWTSecret, cfg.TokenTTL)
	a.Catalog = services.NewCatalogService(a.store, pool, cfg.HomeCategoryLimit)
	a.Cart = services.NewCartService(a.store, pool)
	a.Wishlist = services.NewWishlistService(a.store, pool)
	a.Profile = services.NewProfileService(a.Auth, a.store, a.objects, pool)

	if cfg.SeedCSVDir != "" {
		if _, err := seed.NewImporter(afero.NewOsFs(), a.Catalog).Run(ctx, cfg.SeedCSVDir); err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	a.fiber = a.routes()
	return a, nil
}

func (a *Application) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.StoreDriver {
	case config.DriverMemory:
		a.store = repositories.NewMemoryStore(a.hub)
		a.accounts = repositories.NewMemoryAccountRepository()
		return nil

	case config.DriverSQLite, config.DriverPostgres:
		db, err := a.openGorm(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		store := repositories.NewGormStore(db, a.hub)
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate documents: %w", err)
		}
		a.store = store
		return nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		a.closers = append(a.closers, func() error { return client.Disconnect(context.Background()) })
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		a.store = repositories.NewMongoStore(client.Database(cfg.MongoDatabase), a.hub)
		// Accounts stay relational.
		_, err = a.openGorm(config.DriverSQLite, cfg.DatabaseDSN)
		return err

	case config.DriverBolt:
		db, err := bolt.Open(cfg.BoltPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
		if err != nil {
			return fmt.Errorf("failed to open bolt database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.store = repositories.NewBoltStore(db, a.hub)
		_, err = a.openGorm(config.DriverSQLite, cfg.DatabaseDSN)
		return err
	}
	return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openGorm opens the relational database and sets up the account repository on it.
func (a *Application) openGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if driver == config.DriverPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	accounts := repositories.NewGORMAccountRepository(db)
	if err := accounts.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate accounts: %w", err)
	}
	a.accounts = accounts
	zap.S().Infof("Database connection successful, type: %s", driver)
	return db, nil
}

func (a *Application) openChangeFeed() error {
	mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: a.cfg.RabbitMQURL})
	if err != nil {
		return err
	}
	a.mq = mq
	a.closers = append(a.closers, mq.Close)
	a.hub.SetFeed(mq)
	if err := mq.ConsumeChanges(a.hub.Refresh); err != nil {
		return fmt.Errorf("failed to start change consumer: %w", err)
	}
	return nil
}

// NewPresenter creates a presenter over the application's services.
func (a *Application) NewPresenter(ctx context.Context) *presenter.ShopPresenter {
	return presenter.NewShopPresenter(ctx, a.Catalog, a.Cart, a.Wishlist, a.Profile)
}

func (a *Application) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		BodyLimit:    8 << 20,
		ErrorHandler: errorHandler,
	})
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":     "healthy",
			"time":       time.Now().Format(time.RFC3339),
			"store":      a.cfg.StoreDriver,
			"changeFeed": a.mq != nil,
		})
	})
	handlers.NewObjectHandler(a.objects).RegisterRoutes(app)

	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(a.Auth)

	handlers.NewAuthHandler(a.Profile).RegisterRoutes(apiV1, auth)
	handlers.NewCatalogHandler(a.Catalog).RegisterRoutes(apiV1, auth)
	handlers.NewCartHandler(a.Catalog, a.Cart, a.Wishlist).RegisterRoutes(apiV1, auth)
	handlers.NewStreamHandler(a.NewPresenter).RegisterRoutes(apiV1, auth)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code == fiber.StatusInternalServerError {
		zap.S().Errorf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

// Fiber returns the HTTP application.
func (a *Application) Fiber() *fiber.App {
	return a.fiber
}

// Listen serves HTTP on the configured port until Shutdown.
func (a *Application) Listen() error {
	return a.fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the HTTP server and releases every backend in reverse
// order of creation.
func (a *Application) Shutdown() {
	if a.fiber != nil {
		if err := a.fiber.Shutdown(); err != nil {
			zap.S().Errorf("Error during Fiber shutdown: %v", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.S().Errorf("Error during shutdown: %v", err)
		}
	}
	a.closers = nil
}
