package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const namespace = "bookstore_client"

// Collectors groups the client metrics. A nil *Collectors is valid and records nothing.
type Collectors struct {
	RefreshTotal         *prometheus.CounterVec
	RequestsTotal        *prometheus.CounterVec
	SessionMutations     *prometheus.CounterVec
	SyncEventsTotal      *prometheus.CounterVec
	PersistFailuresTotal prometheus.Counter
	Authenticated        prometheus.Gauge
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Silent access token refresh attempts by result.",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Outgoing API requests by authorization state.",
		}, []string{"auth"}),
		SessionMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_mutations_total",
			Help:      "Session store mutations by type and source.",
		}, []string{"type", "source"}),
		SyncEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Cross-context sync events by direction and outcome.",
		}, []string{"direction", "outcome"}),
		PersistFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed writes of the encrypted session snapshot.",
		}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "authenticated",
			Help:      "1 when the local session is authenticated.",
		}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{
			c.RefreshTotal, c.RequestsTotal, c.SessionMutations,
			c.SyncEventsTotal, c.PersistFailuresTotal, c.Authenticated,
		} {
			if err := reg.Register(col); err != nil {
				log.Warn().Err(err).Msg("Failed to register metric")
			}
		}
	}
	return c
}

func (c *Collectors) Refresh(result string) {
	if c == nil {
		return
	}
	c.RefreshTotal.WithLabelValues(result).Inc()
}

func (c *Collectors) Request(authorized bool) {
	if c == nil {
		return
	}
	label := "none"
	if authorized {
		label = "bearer"
	}
	c.RequestsTotal.WithLabelValues(label).Inc()
}

func (c *Collectors) Mutation(mutationType, source string, authenticated bool) {
	if c == nil {
		return
	}
	c.SessionMutations.WithLabelValues(mutationType, source).Inc()
	if authenticated {
		c.Authenticated.Set(1)
	} else {
		c.Authenticated.Set(0)
	}
}

func (c *Collectors) SyncEvent(direction, outcome string) {
	if c == nil {
		return
	}
	c.SyncEventsTotal.WithLabelValues(direction, outcome).Inc()
}

func (c *Collectors) PersistFailure() {
	if c == nil {
		return
	}
	c.PersistFailuresTotal.Inc()
}
