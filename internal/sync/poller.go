package sync

import (
	"context"
	gosync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
)

// SyncState represents the current state of the background sync.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the state of the most recent pass.
type SyncStatus struct {
	State      SyncState
	LastSync   time.Time
	LastReport *Report
	Error      error
}

// InputFunc loads the accounts and settings for a pass.
type InputFunc func(ctx context.Context) ([]model.Account, model.Settings, error)

// defaultInterval is used when the configured interval is not positive.
const defaultInterval = 5 * time.Minute

// Poller runs a Syncer on an interval and on demand, off the caller's
// goroutine.
type Poller struct {
	syncer    *Syncer
	input     InputFunc
	interval  time.Duration
	logger    *zap.Logger
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        gosync.Mutex
	status    SyncStatus
	running   bool
}

// NewPoller creates a Poller.
func NewPoller(
	syncer *Syncer,
	input InputFunc,
	interval time.Duration,
	logger *zap.Logger,
) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		syncer:    syncer,
		input:     input,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. The first pass runs immediately.
// Calling Start while running has no effect; a stopped Poller can be
// started again.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.loop(ctx, stopCh, doneCh)
}

// Stop halts the polling goroutine and waits for an in-flight pass to
// finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh
}

// Trigger requests an immediate pass. Requests made while one is
// already pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the state of the most recent pass.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-p.triggerCh:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce loads the current input and performs one pass, updating the
// status.
func (p *Poller) RunOnce(ctx context.Context) (*Report, error) {
	p.setStatus(SyncRunning, nil, nil)

	accounts, settings, err := p.input(ctx)
	if err != nil {
		p.logger.Error("loading sync input failed", zap.Error(err))
		p.setStatus(SyncError, nil, err)
		return nil, err
	}

	report, err := p.syncer.Sync(ctx, accounts, settings)
	if err != nil {
		p.setStatus(SyncError, report, err)
		return report, err
	}

	p.setStatus(SyncIdle, report, nil)
	return report, nil
}

func (p *Poller) setStatus(state SyncState, report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if report != nil {
		p.status.LastReport = report
	}
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}
