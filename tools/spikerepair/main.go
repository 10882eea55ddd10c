package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"energy-import/internal/influx"
	"energy-import/internal/repair"
	"energy-import/internal/statistics/infrastructure/postgres"
)

type config struct {
	dbURL      string
	influxURL  string
	influxDB   string
	influxUser string
	influxPass string
	mode       string
	date       string
	startDate  string
	endDate    string
	timezone   string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		fmt.Fprintln(os.Stderr, "timezone:", err)
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	store := postgres.NewStatisticStore(db)

	var opts []influx.Option
	if cfg.influxUser != "" {
		opts = append(opts, influx.WithCredentials(cfg.influxUser, cfg.influxPass))
	}
	source, err := influx.NewClient(cfg.influxURL, cfg.influxDB, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "influx client:", err)
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	svc, err := repair.NewService(source, store, nil, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "repair service:", err)
		os.Exit(2)
	}

	ctx := context.Background()
	switch cfg.mode {
	case "analyze":
		date, err := parseDate(cfg.date, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		spikes, err := svc.Analyze(ctx, date, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "analyze:", err)
			os.Exit(1)
		}
		if len(spikes) == 0 {
			fmt.Printf("No spikes detected for %s\n", cfg.date)
			return
		}
		for _, spike := range spikes {
			fmt.Printf("%-20s %s sum=%.3f delta=%+.3f kWh\n",
				spike.Metric, spike.Start.In(loc).Format("2006-01-02 15:04"), spike.Sum, spike.Delta)
		}
		fmt.Printf("%d spike(s) found. Re-run with --mode fix to repair.\n", len(spikes))

	case "fix":
		date, err := parseDate(cfg.date, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		corrections, err := svc.Fix(ctx, date, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fix:", err)
			os.Exit(1)
		}
		fmt.Printf("Corrected %d spike statistic(s)\n", len(corrections))

	case "recalculate":
		start, err := parseDate(cfg.startDate, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		end, err := parseDate(cfg.endDate, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		updated, err := svc.Recalculate(ctx, start, end, loc)
		if err != nil {
			fmt.Fprintln(os.Stderr, "recalculate:", err)
			os.Exit(1)
		}
		fmt.Printf("Recalculated %d statistic(s)\n", updated)

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want analyze, fix or recalculate)\n", cfg.mode)
		os.Exit(2)
	}
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", ""), "Postgres DSN for the statistics store")
	flag.StringVar(&cfg.influxURL, "influx-url", getenvDefault("INFLUX_URL", "http://localhost:8086"), "InfluxDB base URL")
	flag.StringVar(&cfg.influxDB, "influx-db", getenvDefault("INFLUX_DB", "powerwall"), "InfluxDB database")
	flag.StringVar(&cfg.influxUser, "influx-user", getenvDefault("INFLUX_USER", ""), "InfluxDB username (optional)")
	flag.StringVar(&cfg.influxPass, "influx-pass", getenvDefault("INFLUX_PASSWORD", ""), "InfluxDB password (optional)")
	flag.StringVar(&cfg.mode, "mode", "analyze", "analyze, fix or recalculate")
	flag.StringVar(&cfg.date, "date", "", "date to scan in YYYY-MM-DD (analyze/fix)")
	flag.StringVar(&cfg.startDate, "start", "", "range start in YYYY-MM-DD (recalculate)")
	flag.StringVar(&cfg.endDate, "end", "", "range end in YYYY-MM-DD (recalculate)")
	flag.StringVar(&cfg.timezone, "tz", getenvDefault("BACKFILL_TIMEZONE", "America/Denver"), "local timezone")
	flag.Parse()

	if cfg.dbURL == "" {
		return cfg, errors.New("missing --db or DATABASE_URL")
	}
	switch cfg.mode {
	case "analyze", "fix":
		if cfg.date == "" {
			return cfg, errors.New("missing --date (YYYY-MM-DD)")
		}
	case "recalculate":
		if cfg.startDate == "" || cfg.endDate == "" {
			return cfg, errors.New("recalculate requires --start and --end (YYYY-MM-DD)")
		}
	}
	return cfg, nil
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
