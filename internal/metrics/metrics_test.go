package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"studentattendance/internal/attendance"
	"studentattendance/internal/auth"
	"studentattendance/internal/events"
)

type stubRepo struct{ err error }

func (r stubRepo) Insert(_ context.Context, e attendance.Entry) (attendance.Entry, error) {
	return e, r.err
}

func (r stubRepo) ListByDivision(context.Context, attendance.Division) ([]attendance.Entry, error) {
	return nil, r.err
}

func TestRepositoryCountsOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	_, _ = m.Repository(stubRepo{}).Insert(ctx, attendance.Entry{})
	_, _ = m.Repository(stubRepo{err: errors.New("down")}).ListByDivision(ctx, "A")
	_, _ = m.Repository(stubRepo{err: errors.New("down")}).ListByDivision(ctx, "A")

	if got := testutil.ToFloat64(m.Calls.WithLabelValues("insert", "ok")); got != 1 {
		t.Errorf("insert ok = %v", got)
	}
	if got := testutil.ToFloat64(m.Calls.WithLabelValues("list", "error")); got != 2 {
		t.Errorf("list error = %v", got)
	}
	if got := testutil.CollectAndCount(m.Latency); got != 2 {
		t.Errorf("latency series = %d, want 2", got)
	}
}

func TestProviderAndBroker(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	p := m.Provider(auth.NewLocalProvider(auth.NewMemoryUserStore(), "test", "0123456789abcdef", 0, 0))
	_, _ = p.SignInWithPassword(ctx, "nobody@x.y", "secret1")
	if got := testutil.ToFloat64(m.Calls.WithLabelValues("sign_in", "error")); got != 1 {
		t.Errorf("sign_in error = %v", got)
	}

	b := m.Broker(events.NewInMemory())
	subCtx, cancel := context.WithCancel(ctx)
	if _, err := b.Subscribe(subCtx, "br"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.Streams); got != 1 {
		t.Errorf("streams = %v", got)
	}
	cancel()

	_ = b.Publish(ctx, events.Event{Type: events.SignedIn, Browser: "br"})
	if got := testutil.ToFloat64(m.SessionEvents.WithLabelValues("SIGNED_IN")); got != 1 {
		t.Errorf("session events = %v", got)
	}
}
