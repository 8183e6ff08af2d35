package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/nexus-import/internal/core"
)

// Mirror receives the full session collection after every mutation.
type Mirror interface {
	Mirror(ctx context.Context, p core.ProfileInfo, sessions []core.ImportSession) error
}

// DefaultMirrorTimeout bounds one Mirror call.
const DefaultMirrorTimeout = 10 * time.Second

type pendingCollection struct {
	profile  core.ProfileInfo
	sessions []core.ImportSession
}

// MirrorDispatcher delivers collections to a Mirror from one background
// worker. Submissions for the same collection coalesce so only the latest
// is sent. Mirror failures are logged and never reach the caller.
//
// A nil *MirrorDispatcher is valid and drops everything.
type MirrorDispatcher struct {
	mirror  Mirror
	timeout time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingCollection
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewMirrorDispatcher starts the delivery worker.
func NewMirrorDispatcher(m Mirror, timeout time.Duration, log *slog.Logger) *MirrorDispatcher {
	if timeout <= 0 {
		timeout = DefaultMirrorTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	d := &MirrorDispatcher{
		mirror:  m,
		timeout: timeout,
		log:     log,
		pending: make(map[string]pendingCollection),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Submit queues sessions for delivery and returns immediately.
func (d *MirrorDispatcher) Submit(p core.ProfileInfo, sessions []core.ImportSession) {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("mirror closed, dropping collection", slog.String("key", p.SessionsKey))
		return
	}
	d.pending[p.SessionsKey] = pendingCollection{profile: p, sessions: sessions}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting submissions, delivers what is pending, and waits
// for the worker to finish or ctx to end.
func (d *MirrorDispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *MirrorDispatcher) run() {
	defer close(d.done)

	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *MirrorDispatcher) drain() {
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = make(map[string]pendingCollection)
		d.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for key, pc := range batch {
			d.deliver(key, pc)
		}
	}
}

func (d *MirrorDispatcher) deliver(key string, pc pendingCollection) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.mirror.Mirror(ctx, pc.profile, pc.sessions); err != nil {
		d.log.Warn("mirror failed",
			slog.String("key", key),
			slog.Int("sessions", len(pc.sessions)),
			slog.String("error", err.Error()),
		)
		return
	}
	d.log.Debug("mirror delivered",
		slog.String("key", key),
		slog.Int("sessions", len(pc.sessions)),
		slog.Duration("duration", time.Since(start)),
	)
}
