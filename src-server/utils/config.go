package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	port         string
	databasePath string
	qrCodeDir    string

	schedulerInterval        time.Duration
	metricCollectionInterval time.Duration

	location *time.Location
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),

		databasePath: func() string {
			databasePath := os.Getenv("DATABASE_PATH")
			if databasePath == "" {
				databasePath = "./sqlite.db"
			}
			slog.Debug("env", "DATABASE_PATH", databasePath)
			return databasePath
		}(),

		qrCodeDir: func() string {
			qrCodeDir := os.Getenv("QR_CODE_DIR")
			if qrCodeDir == "" {
				qrCodeDir = "./qr_codes"
			}
			slog.Debug("env", "QR_CODE_DIR", qrCodeDir)
			return filepath.Clean(qrCodeDir)
		}(),

		schedulerInterval: func() time.Duration {
			schedulerInterval := os.Getenv("SCHEDULER_INTERVAL")
			if schedulerInterval == "" {
				schedulerInterval = "5m"
			}
			duration, err := time.ParseDuration(schedulerInterval)
			if err != nil {
				slog.Error("invalid SCHEDULER_INTERVAL", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "SCHEDULER_INTERVAL", schedulerInterval, "duration", duration)
			return duration
		}(),

		metricCollectionInterval: func() time.Duration {
			metricCollectionInterval := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if metricCollectionInterval == "" {
				metricCollectionInterval = "5s"
			}
			duration, err := time.ParseDuration(metricCollectionInterval)
			if err != nil {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", metricCollectionInterval, "duration", duration)
			return duration
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DATABASE_PATH env, default to ./sqlite.db
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// Get QR_CODE_DIR env, default to ./qr_codes
func (c *Config) GetQRCodeDir() string {
	return c.qrCodeDir
}

// Get SCHEDULER_INTERVAL env, default to 5m
func (c *Config) GetSchedulerInterval() time.Duration {
	return c.schedulerInterval
}

// Get METRIC_COLLECTION_INTERVAL env, default to 5s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}
