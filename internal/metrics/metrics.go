package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
	"studentattendance/internal/events"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	Calls         *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	SessionEvents *prometheus.CounterVec
	Streams       prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "backend_calls_total",
			Help:      "Calls to the auth and attendance backend by operation and outcome.",
		}, []string{"op", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "backend_call_seconds",
			Help:      "Latency of backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "session_events_total",
			Help:      "Published session changes by type.",
		}, []string{"type"}),
		Streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "attendance",
			Name:      "session_streams",
			Help:      "Open session event streams.",
		}),
	}
	reg.MustRegister(m.Calls, m.Latency, m.SessionEvents, m.Streams)
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Calls.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Repository instruments an attendance repository.
func (m *Metrics) Repository(r attendance.Repository) attendance.Repository {
	return &repository{next: r, m: m}
}

type repository struct {
	next attendance.Repository
	m    *Metrics
}

func (r *repository) Insert(ctx context.Context, e attendance.Entry) (attendance.Entry, error) {
	start := time.Now()
	out, err := r.next.Insert(ctx, e)
	r.m.observe("insert", start, err)
	return out, err
}

func (r *repository) ListByDivision(ctx context.Context, d attendance.Division) ([]attendance.Entry, error) {
	start := time.Now()
	out, err := r.next.ListByDivision(ctx, d)
	r.m.observe("list", start, err)
	return out, err
}

// Provider instruments an auth provider.
func (m *Metrics) Provider(p auth.Provider) auth.Provider {
	return &provider{next: p, m: m}
}

type provider struct {
	next auth.Provider
	m    *Metrics
}

func (p *provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error) {
	start := time.Now()
	s, err := p.next.SignInWithPassword(ctx, email, password)
	p.m.observe("sign_in", start, err)
	return s, err
}

func (p *provider) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	start := time.Now()
	s, err := p.next.SignUp(ctx, email, password)
	p.m.observe("sign_up", start, err)
	return s, err
}

func (p *provider) SignOut(ctx context.Context, accessToken string) error {
	start := time.Now()
	err := p.next.SignOut(ctx, accessToken)
	p.m.observe("sign_out", start, err)
	return err
}

func (p *provider) GetUser(ctx context.Context, accessToken string) (*auth.User, error) {
	start := time.Now()
	u, err := p.next.GetUser(ctx, accessToken)
	p.m.observe("get_user", start, err)
	return u, err
}

func (p *provider) RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error) {
	start := time.Now()
	s, err := p.next.RefreshSession(ctx, refreshToken)
	p.m.observe("refresh", start, err)
	return s, err
}

// Broker counts published session changes and open streams.
func (m *Metrics) Broker(b events.Broker) events.Broker {
	return &broker{next: b, m: m}
}

type broker struct {
	next events.Broker
	m    *Metrics
}

func (b *broker) Publish(ctx context.Context, ev events.Event) error {
	b.m.SessionEvents.WithLabelValues(string(ev.Type)).Inc()
	return b.next.Publish(ctx, ev)
}

func (b *broker) Subscribe(ctx context.Context, browser string) (<-chan events.Event, error) {
	ch, err := b.next.Subscribe(ctx, browser)
	if err != nil {
		return nil, err
	}
	b.m.Streams.Inc()
	go func() {
		<-ctx.Done()
		b.m.Streams.Dec()
	}()
	return ch, nil
}
