package monitoring

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)

var (
	DatabaseQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total database queries",
		},
	)

	AppointmentsBooked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_appointments_booked_total",
			Help: "Appointments created, by type",
		},
		[]string{"type"},
	)

	BookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_booking_conflicts_total",
			Help: "Appointment writes rejected by the double-booking rule",
		},
	)

	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_events_consumed_total",
			Help: "Clinic events processed by the directory consumer",
		},
		[]string{"event", "result"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(DatabaseQueries)
		prometheus.MustRegister(AppointmentsBooked)
		prometheus.MustRegister(BookingConflicts)
		prometheus.MustRegister(EventsConsumed)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
