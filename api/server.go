package api

import (
	"os"
	"strings"

	"Board/api/config"
	"Board/api/controllers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var server = controllers.Server{}

func init() {
	// Load .env only outside production. In production, config comes from the environment.
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
}

func initLogger(cfg config.Config) {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	initLogger(cfg)
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := server.Initialize(cfg); err != nil {
		log.Fatalf("startup: %v", err)
	}

	addr := ":" + strings.TrimSpace(cfg.Port)
	server.Run(addr)
}
