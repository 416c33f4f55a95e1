package utils

import (
	"database/sql"
	"gatherd/src-server/credential"
	"gatherd/src-server/notify"
	"log/slog"
	"os"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type AppState struct {
	Config   *Config
	RawDB    *sql.DB
	BunDB    *bun.DB
	Issuer   *credential.Issuer
	Notifier notify.Notifier

	// latencies and counters consumed by the metric package
	MetricChans *Metric

	AppCloseSignalChan chan os.Signal

	gracefulShutdownMutex sync.Mutex
	gracefulShutdownChans []*chan struct{}
}

func NewAppState() *AppState {
	as := &AppState{}

	as.Config = NewConfig()
	as.MetricChans = NewMetric()
	as.AppCloseSignalChan = make(chan os.Signal, 1)

	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, as.Config.GetDatabasePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.FromEnv("BUNDEBUG"),
	))

	as.Issuer = &credential.Issuer{Dir: as.Config.GetQRCodeDir()}
	as.Notifier = notify.LogNotifier{}

	return as
}

// CreateGracefulShutdownChan hands out a channel that is closed when the app
// shuts down; long-running goroutines select on it to clean up.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	ch := make(chan struct{})
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, &ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	for _, ch := range as.gracefulShutdownChans {
		close(*ch)
	}
	as.gracefulShutdownChans = nil

	if err := as.BunDB.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}
