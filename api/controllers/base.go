package controllers

import (
	"fmt"
	"net/http"
	"time"

	"Board/api/auth"
	"Board/api/board"
	"Board/api/cache"
	"Board/api/config"
	"Board/api/identity"
	"Board/api/ledger"
	"Board/api/middlewares"
	"Board/api/models"
	"Board/api/monitoring"
	"Board/api/security"
	"Board/api/seed"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Server struct {
	DB     *gorm.DB
	Router *gin.Engine

	Codec  *auth.Codec
	Users  *identity.Store
	Board  *board.Service
	Ledger *ledger.Ledger

	corsOrigins []string
}

// ===============================
// SERVER INITIALIZATION
// ===============================
func (server *Server) Initialize(cfg config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}

	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := models.NormalizeCounters(db); err != nil {
		log.WithError(err).Warn("counters not normalized")
	}

	// Redis init (safe failure)
	if err := cache.Init(cfg); err != nil {
		log.WithError(err).Warn("could not connect to redis, post cache disabled")
	}

	secret := cfg.JWTSecret
	if len(secret) == 0 {
		log.Warn("JWT_SECRET not set, signing with a random key; tokens will not survive a restart")
		if secret, err = auth.NewRandomKey(); err != nil {
			return err
		}
	}
	codec, err := auth.NewCodec(secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	hasher := security.BcryptHasher{}
	server.Wire(db, codec, hasher, cfg.CORSOrigins)

	if cfg.SeedDemo {
		if err := seed.Load(server.Users, server.Ledger, server.Board); err != nil {
			log.WithError(err).Error("seeding demo data failed")
		}
	}
	return nil
}

// Wire builds the services and router on top of an open database.
func (server *Server) Wire(db *gorm.DB, codec *auth.Codec, hasher security.Hasher, corsOrigins []string) {
	server.DB = db
	server.Codec = codec
	server.Users = identity.NewStore(db, hasher, codec)
	server.Board = board.NewService(db, server.Users)
	server.Ledger = ledger.New(db, server.Users, server.Board)
	server.corsOrigins = corsOrigins

	server.Router = gin.New()
	server.Router.Use(gin.Recovery())
	server.Router.Use(middlewares.RequestLogger())
	server.Router.Use(monitoring.InstrumentHandler())
	server.Router.Use(middlewares.CORSMiddleware(server.corsOrigins))
	server.Router.Use(middlewares.RateLimitMiddleware())
	server.initializeRoutes()
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func (server *Server) Run(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	log.Fatal(srv.ListenAndServe())
}
