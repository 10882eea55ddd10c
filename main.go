package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"energy-import/internal/auth"
	"energy-import/internal/backfill/application"
	backfill "energy-import/internal/backfill/domain"
	backfillhttp "energy-import/internal/backfill/interfaces/http"
	"energy-import/internal/diagnostics"
	"energy-import/internal/influx"
	"energy-import/internal/observability/metrics"
	"energy-import/internal/repair"
	"energy-import/internal/statistics/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadEnv()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	engineCfg, err := application.LoadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	store := postgres.NewStatisticStore(db)

	var sourceOpts []influx.Option
	if cfg.InfluxUser != "" {
		sourceOpts = append(sourceOpts, influx.WithCredentials(cfg.InfluxUser, cfg.InfluxPassword))
	}
	if engineCfg.Series != "" {
		sourceOpts = append(sourceOpts, influx.WithSeries(engineCfg.Series))
	}
	source, err := influx.NewClient(cfg.InfluxURL, cfg.InfluxDB, sourceOpts...)
	if err != nil {
		logger.Fatalf("influx client error: %v", err)
	}

	service, err := application.NewService(source, store, store, store, store, engineCfg, backfill.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("backfill service error: %v", err)
	}

	repairer, err := repair.NewService(source, store, nil, logger)
	if err != nil {
		logger.Fatalf("repair service error: %v", err)
	}

	snapshot := func() diagnostics.Snapshot {
		return diagnostics.Build(engineCfg, cfg.InfluxURL, cfg.InfluxDB, source)
	}
	handler, err := backfillhttp.NewHandler(service, repairer, snapshot, logger)
	if err != nil {
		logger.Fatalf("backfill handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type env struct {
	DatabaseURL    string
	HTTPAddr       string
	InfluxURL      string
	InfluxDB       string
	InfluxUser     string
	InfluxPassword string
	JWTSecret      string
}

func loadEnv() env {
	cfg := env{
		DatabaseURL:    getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:       getenvDefault("HTTP_ADDR", ":8080"),
		InfluxURL:      getenvDefault("INFLUX_URL", "http://localhost:8086"),
		InfluxDB:       getenvDefault("INFLUX_DB", "powerwall"),
		InfluxUser:     getenvDefault("INFLUX_USER", ""),
		InfluxPassword: getenvDefault("INFLUX_PASSWORD", ""),
		JWTSecret:      getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
