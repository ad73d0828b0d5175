// Package connectivity tracks whether the process can reach the outside
// world and notifies listeners when it comes back.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	commonhttp "candidate-portal/internal/common/http"
	"candidate-portal/internal/common/logger"

	"github.com/robfig/cron/v3"
)

// Signal is the read side consumed by the data service and activity tracker.
type Signal interface {
	Online() bool
	OnRestored(fn func())
}

// state holds the flag and fires listeners on an offline to online edge.
type state struct {
	online    atomic.Bool
	mu        sync.Mutex
	listeners []func()
}

func (s *state) Online() bool {
	return s.online.Load()
}

func (s *state) OnRestored(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// set stores online and returns true when it was a restore.
func (s *state) set(online bool) bool {
	prev := s.online.Swap(online)
	if prev || !online {
		return false
	}

	s.mu.Lock()
	fns := make([]func(), len(s.listeners))
	copy(fns, s.listeners)
	s.mu.Unlock()

	for _, fn := range fns {
		go fn()
	}
	return true
}

// Monitor probes a URL on a cron schedule.
type Monitor struct {
	state
	client *commonhttp.Client
	url    string
	cron   *cron.Cron
	logger logger.Logger
}

// NewMonitor starts in the online state until a probe says otherwise.
func NewMonitor(url string, timeout time.Duration, log logger.Logger) *Monitor {
	m := &Monitor{
		client: commonhttp.NewClient(timeout, "candidate-portal-probe"),
		url:    url,
		logger: log.WithFields(map[string]interface{}{"component": "connectivity"}),
	}
	m.online.Store(true)
	return m
}

// Probe performs one check. Any HTTP response counts as online.
func (m *Monitor) Probe(ctx context.Context) bool {
	_, err := m.client.Head(ctx, m.url)
	online := err == nil

	wasOnline := m.Online()
	restored := m.set(online)
	switch {
	case restored:
		m.logger.Info("Connectivity restored", nil)
	case wasOnline && !online:
		m.logger.Warn("Connectivity lost", map[string]interface{}{"error": err.Error()})
	}
	return online
}

// Start schedules probes with a cron spec such as "@every 15s".
func (m *Monitor) Start(spec string) error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.Probe(ctx)
	}); err != nil {
		return err
	}
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running probe.
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
}

// Static is a manually driven Signal.
type Static struct {
	state
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

// Set changes the state, firing listeners on restore.
func (s *Static) Set(online bool) {
	s.set(online)
}
