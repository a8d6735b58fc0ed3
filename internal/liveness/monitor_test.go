package liveness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/msana/internal/billingapi"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeProber struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakeProber) Health(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestProbeFollowsHealth(t *testing.T) {
	ctx := context.Background()
	mt := metrics.New()
	prober := &fakeProber{}
	mon := NewMonitor(NewMachine(nil), prober, time.Second, nil, mt)

	if err := mon.Probe(ctx); err != nil {
		t.Fatal(err)
	}
	if !mon.Online() {
		t.Fatal("healthy probe should go online")
	}
	if got := testutil.ToFloat64(mt.Online); got != 1 {
		t.Errorf("msana_online = %v, want 1", got)
	}

	prober.setErr(&billingapi.NetworkError{Op: "health", Err: errors.New("connection refused")})
	if err := mon.Probe(ctx); err != nil {
		t.Fatal(err)
	}
	if mon.Online() {
		t.Fatal("failed probe should go offline")
	}
	if got := testutil.ToFloat64(mt.Online); got != 0 {
		t.Errorf("msana_online = %v, want 0", got)
	}
}

func TestForceOverridesProbe(t *testing.T) {
	ctx := context.Background()
	prober := &fakeProber{}
	mon := NewMonitor(NewMachine(nil), prober, time.Second, nil, nil)

	if err := mon.Force(false); err != nil {
		t.Fatal(err)
	}
	if err := mon.Probe(ctx); err != nil {
		t.Fatal(err)
	}
	if mon.Online() {
		t.Error("forced offline should ignore a healthy probe")
	}
	if prober.count() != 0 {
		t.Errorf("probe calls = %d, want 0 while forced", prober.count())
	}
	if mon.Mode() != ModeForcedOffline {
		t.Errorf("mode = %s, want %s", mon.Mode(), ModeForcedOffline)
	}

	if err := mon.Auto(ctx); err != nil {
		t.Fatal(err)
	}
	if !mon.Online() {
		t.Error("Auto should probe and go online")
	}
}

func TestForceOnlinePublishesOnce(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	mon := NewMonitor(NewMachine(b), &fakeProber{}, time.Second, nil, nil)
	_ = mon.Force(true)
	_ = mon.Force(true)

	if len(ch) != 1 {
		t.Fatalf("events = %d, want 1", len(ch))
	}
	if evt := <-ch; evt.Kind != bus.NetOnline {
		t.Errorf("kind = %q, want %s", evt.Kind, bus.NetOnline)
	}
}

func TestMonitorLoop(t *testing.T) {
	prober := &fakeProber{err: &billingapi.NetworkError{Op: "health", Err: errors.New("down")}}
	mon := NewMonitor(NewMachine(nil), prober, 10*time.Millisecond, nil, nil)
	mon.Start(context.Background())
	defer mon.Stop()

	if mon.State() != Offline {
		t.Fatalf("state after Start = %s, want %s", mon.State(), Offline)
	}

	deadline := time.Now().Add(time.Second)

	prober.setErr(nil)
	for !mon.Online() {
		if time.Now().After(deadline) {
			t.Fatal("monitor never came back online")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartProbesBeforeReturning(t *testing.T) {
	prober := &fakeProber{}
	mon := NewMonitor(NewMachine(nil), prober, time.Hour, nil, nil)
	mon.Start(context.Background())
	defer mon.Stop()

	if !mon.Online() {
		t.Errorf("state after Start = %s, want %s", mon.State(), Online)
	}
	if prober.count() != 1 {
		t.Errorf("probe calls = %d, want 1", prober.count())
	}
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestAnsweringServerIsOnline(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					t.Error("health check carried a bearer token")
				}
				w.WriteHeader(status)
			}))
			defer srv.Close()

			forgotten := false
			client := billingapi.New(srv.URL, time.Second, staticToken("tok"), nil,
				billingapi.WithUnauthorizedHandler(func(context.Context) error {
					forgotten = true
					return nil
				}))
			mon := NewMonitor(NewMachine(nil), client, time.Second, nil, nil)

			if err := mon.Probe(context.Background()); err != nil {
				t.Fatal(err)
			}
			if mon.State() != Online {
				t.Errorf("state = %s, want %s", mon.State(), Online)
			}
			if forgotten {
				t.Error("health check ran the unauthorized handler")
			}
		})
	}
}

func TestUnreachableServerIsOffline(t *testing.T) {
	for _, status := range []int{0, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			url := srv.URL
			if status == 0 {
				srv.Close()
			} else {
				defer srv.Close()
			}

			mon := NewMonitor(NewMachine(nil), billingapi.New(url, time.Second, nil, nil), time.Second, nil, nil)
			if err := mon.Probe(context.Background()); err != nil {
				t.Fatal(err)
			}
			if mon.State() != Offline {
				t.Errorf("state = %s, want %s", mon.State(), Offline)
			}
		})
	}
}
