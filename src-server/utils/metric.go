package utils

type Metric struct {
	DatabaseRead   chan float64
	DatabaseWrite  chan float64
	EventsArchived chan float64
	RemindersSent  chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:   make(chan float64),
		DatabaseWrite:  make(chan float64),
		EventsArchived: make(chan float64),
		RemindersSent:  make(chan float64),
	}
}
