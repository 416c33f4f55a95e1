package metric

import (
	"gatherd/src-server/utils"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func databaseEmptyRead(as *utils.AppState, tickerInterval *time.Duration) {
	databaseEmptyRead := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatherd_database_empty_read_microsec",
		Help: "The latency of an empty database read in microseconds",
	})
	good := true
	if err := prometheus.Register(databaseEmptyRead); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register gatherd_database_empty_read_microsec metric", "error", err)
			good = false
		}
	}
	if good {
		slog.Debug("gatherd_database_empty_read_microsec metric registered")
		databaseEmptyRead.Set(0)
	}
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(*tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(databaseEmptyRead) {
				case true:
					slog.Debug("gatherd_database_empty_read_microsec metric unregistered")
				case false:
					slog.Warn("gatherd_database_empty_read_microsec metric not registered")
				}
				return
			case <-ticker.C:
				latency, err := database(as)
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				databaseEmptyRead.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

func databaseRead(as *utils.AppState, clearTickerInterval *time.Duration) {
	databaseRead := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatherd_database_read_microsec",
		Help: "The latency of a database read in microseconds",
	})
	good := true
	if err := prometheus.Register(databaseRead); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register gatherd_database_read_microsec metric", "error", err)
			good = false
		}
	}
	if good {
		slog.Debug("gatherd_database_read_microsec metric registered")
		databaseRead.Set(0)
	}
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(*clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(databaseRead) {
				case true:
					slog.Debug("gatherd_database_read_microsec metric unregistered")
				case false:
					slog.Warn("gatherd_database_read_microsec metric not registered")
				}
				return
			case latency := <-as.MetricChans.DatabaseRead:
				databaseRead.Set(latency)
				clearTicker.Reset(*clearTickerInterval)
			case <-clearTicker.C:
				databaseRead.Set(0)
			}
		}
	}()
}

func databaseWrite(as *utils.AppState, clearTickerInterval *time.Duration) {
	databaseWrite := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatherd_database_write_microsec",
		Help: "The latency of a database write in microseconds",
	})
	good := true
	if err := prometheus.Register(databaseWrite); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register gatherd_database_write_microsec metric", "error", err)
			good = false
		}
	}
	if good {
		slog.Debug("gatherd_database_write_microsec metric registered")
		databaseWrite.Set(0)
	}
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(*clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(databaseWrite) {
				case true:
					slog.Debug("gatherd_database_write_microsec metric unregistered")
				case false:
					slog.Warn("gatherd_database_write_microsec metric not registered")
				}
				return
			case latency := <-as.MetricChans.DatabaseWrite:
				databaseWrite.Set(latency)
				clearTicker.Reset(*clearTickerInterval)
			case <-clearTicker.C:
				databaseWrite.Set(0)
			}
		}
	}()
}

func eventsArchived(as *utils.AppState) {
	eventsArchived := promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherd_events_archived_total",
		Help: "Events archived by the lifecycle sweeps",
	})
	good := true
	if err := prometheus.Register(eventsArchived); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register gatherd_events_archived_total metric", "error", err)
			good = false
		}
	}
	if good {
		slog.Debug("gatherd_events_archived_total metric registered")
	}
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(eventsArchived) {
				case true:
					slog.Debug("gatherd_events_archived_total metric unregistered")
				case false:
					slog.Warn("gatherd_events_archived_total metric not registered")
				}
				return
			case count := <-as.MetricChans.EventsArchived:
				eventsArchived.Add(count)
			}
		}
	}()
}

func remindersSent(as *utils.AppState) {
	remindersSent := promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherd_reminders_sent_total",
		Help: "Reminder notifications dispatched by the scheduler",
	})
	good := true
	if err := prometheus.Register(remindersSent); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register gatherd_reminders_sent_total metric", "error", err)
			good = false
		}
	}
	if good {
		slog.Debug("gatherd_reminders_sent_total metric registered")
	}
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				switch prometheus.Unregister(remindersSent) {
				case true:
					slog.Debug("gatherd_reminders_sent_total metric unregistered")
				case false:
					slog.Warn("gatherd_reminders_sent_total metric not registered")
				}
				return
			case count := <-as.MetricChans.RemindersSent:
				remindersSent.Add(count)
			}
		}
	}()
}

func Init(as *utils.AppState) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	databaseEmptyRead(as, &tickerInterval)
	databaseRead(as, &clearTickerInterval)
	databaseWrite(as, &clearTickerInterval)
	eventsArchived(as)
	remindersSent(as)
}
