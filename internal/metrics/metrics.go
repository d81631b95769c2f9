package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
)

var (
	once sync.Once

	// HTTPRequestsTotal запросы по маршруту и коду ответа.
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by method, route template and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "citesignal",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route template.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	// IncidentEventsTotal события жизненного цикла обращений.
	IncidentEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "incidents",
		Name:      "events_total",
		Help:      "Incident lifecycle events by type.",
	}, []string{"type"})

	// StatusTransitionsTotal переходы статусов from -> to.
	StatusTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "incidents",
		Name:      "status_transitions_total",
		Help:      "Incident status transitions by source and target status.",
	}, []string{"from", "to"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "notifications",
		Name:      "created_total",
		Help:      "Notifications created, labeled by type and persistence result.",
	}, []string{"type", "result"})

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "notifications",
		Name:      "emails_total",
		Help:      "Outgoing e-mails by kind and result.",
	}, []string{"kind", "result"})

	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "citesignal",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Incident events published to the message broker by result.",
	}, []string{"result"})
)

// Register регистрирует метрики в дефолтном реестре. Повторный вызов безопасен.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			IncidentEventsTotal,
			StatusTransitionsTotal,
			NotificationsTotal,
			EmailsTotal,
			EventsPublishedTotal,
		)
	})
}

// RegisterConnectedUsers gauge с числом пользователей, подключённых по WebSocket.
func RegisterConnectedUsers(fn func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "citesignal",
		Subsystem: "ws",
		Name:      "connected_users",
		Help:      "Users with at least one open WebSocket connection.",
	}, func() float64 { return float64(fn()) }))
}

// EventRecorder считает события обращений; подключается как ещё один получатель событий.
type EventRecorder struct{}

func (EventRecorder) Publish(_ context.Context, event entity.IncidentEvent) {
	IncidentEventsTotal.WithLabelValues(event.Type).Inc()
	if event.Type == entity.EventStatusChanged {
		StatusTransitionsTotal.WithLabelValues(event.FromStatus, event.ToStatus).Inc()
	}
}

// Result метка результата для счётчиков.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
