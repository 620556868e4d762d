package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anongrove/grove-backend/internal/config"
	"github.com/anongrove/grove-backend/internal/handler"
	"github.com/anongrove/grove-backend/internal/middleware"
	"github.com/anongrove/grove-backend/internal/migration"
	"github.com/anongrove/grove-backend/internal/repository"
	"github.com/anongrove/grove-backend/internal/routes"
	"github.com/anongrove/grove-backend/internal/service"
	pkgcache "github.com/anongrove/grove-backend/pkg/cache"
	pkgjwt "github.com/anongrove/grove-backend/pkg/jwt"
	pkglogger "github.com/anongrove/grove-backend/pkg/logger"
	pkgredis "github.com/anongrove/grove-backend/pkg/redis"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// MySQL 연결
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Redis 연결 (없어도 동작)
	var cacheService pkgcache.Service
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without cache)", err)
	} else {
		cacheService = pkgcache.NewService(redisClient)
		pkglogger.Info("Connected to Redis")
	}

	jwtManager := pkgjwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)

	// 의존성 조립
	postRepo := repository.NewPostRepository(db)
	postService := service.NewPostService(postRepo, cacheService)
	postHandler := handler.NewPostHandler(postService)
	adminHandler := handler.NewAdminHandler(postService)

	if env != "local" && env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(cors.Default())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Setup(router, postHandler, adminHandler, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Info("Listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		// map duplicate-key and not-found driver errors to gorm errors
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
