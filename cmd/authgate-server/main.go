// Command authgate-server runs a standalone auth service: the authgate
// handler mounted under a configurable base path, plus a demo credentials
// provider, a protected /api/me route, and Prometheus metrics at /metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mwhitford/authgate"
	promexport "github.com/mwhitford/authgate/metrics/export/prometheus"
	"github.com/mwhitford/authgate/middleware"
	"github.com/mwhitford/authgate/password"
	"github.com/mwhitford/authgate/provider"
)

type serverConfig struct {
	Addr          string        `env:"AUTHGATE_ADDR" envDefault:":8080"`
	Secret        string        `env:"AUTHGATE_SECRET,required"`
	BasePath      string        `env:"AUTHGATE_BASE_PATH" envDefault:"/api/auth"`
	RedisAddr     string        `env:"AUTHGATE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"AUTHGATE_REDIS_PASSWORD"`
	RedisDB       int           `env:"AUTHGATE_REDIS_DB" envDefault:"0"`
	CORSOrigins   []string      `env:"AUTHGATE_CORS_ORIGINS" envDefault:"http://localhost:3000"`
	Production    bool          `env:"AUTHGATE_PRODUCTION" envDefault:"false"`
	SessionMaxAge time.Duration `env:"AUTHGATE_SESSION_MAX_AGE" envDefault:"720h"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("authgate-server: skipping .env: %v", err)
	}

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("authgate-server: parse environment: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("authgate-server: redis unreachable at %s: %v", cfg.RedisAddr, err)
	}

	handler, err := buildHandler(cfg, rdb)
	if err != nil {
		log.Fatalf("authgate-server: build handler: %v", err)
	}
	defer handler.Close()

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Auth-Return-Redirect"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Any(cfg.BasePath+"/*action", gin.WrapH(handler))

	guard := middleware.RequireSession(handler)
	r.GET("/api/me", gin.WrapH(guard(http.HandlerFunc(me))))
	r.GET("/metrics", gin.WrapH(promexport.NewPrometheusExporter(handler).Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("authgate-server: listening on %s (auth at %s)", cfg.Addr, cfg.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("authgate-server: listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("authgate-server: shutdown: %v", err)
	}
}

func buildHandler(cfg serverConfig, rdb *redis.Client) (*authgate.Handler, error) {
	conf := authgate.DefaultConfig()
	conf.Secret = cfg.Secret
	conf.BasePath = cfg.BasePath
	conf.Session.Strategy = authgate.StrategyStore
	conf.Session.MaxAge = cfg.SessionMaxAge
	conf.Security.ProductionMode = cfg.Production
	if cfg.Production {
		conf.Cookies.Secure = true
	}
	conf.Audit.Enabled = true

	return authgate.New().
		WithConfig(conf).
		WithRedis(rdb).
		WithProviders(demoCredentials()).
		WithAuditSink(authgate.NewJSONWriterSink(os.Stdout)).
		WithMetricsEnabled(true).
		Build()
}

// demoCredentials authenticates a single in-memory account. Replace the
// Authorize func with a real user lookup for anything beyond a demo.
func demoCredentials() *provider.Credentials {
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		log.Fatalf("authgate-server: hasher: %v", err)
	}
	stored, err := hasher.Hash("hunter22")
	if err != nil {
		log.Fatalf("authgate-server: hash demo password: %v", err)
	}

	return &provider.Credentials{
		ProviderID:   "credentials",
		ProviderName: "Demo Account",
		Fields: []provider.Field{
			{Name: "username", Label: "Username", Type: "text", Placeholder: "jsmith"},
			{Name: "password", Label: "Password", Type: "password"},
		},
		Authorize: func(ctx context.Context, creds map[string]string) (map[string]any, error) {
			if creds["username"] != "jsmith" {
				return nil, nil
			}
			ok, err := hasher.Verify(creds["password"], stored)
			if err != nil || !ok {
				return nil, nil
			}
			return map[string]any{"id": "1", "name": "J Smith", "username": "jsmith"}, nil
		},
	}
}

func me(w http.ResponseWriter, r *http.Request) {
	payload, _ := middleware.SessionFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(payload.User)
}
