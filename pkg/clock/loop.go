package clock

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	logx "framesched/pkg/logx"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("frame loop stopped")

// LoopConfig controls the real-time frame loop.
//
// Defaults (when fields are zero):
//   - FrameRate: 60
//   - QueueSize: 256
type LoopConfig struct {
	FrameRate int
	QueueSize int
}

// Loop is a real-time FrameSource backed by a ticker.
//
// Frames and posted tasks both run on the goroutine that calls Run, which
// makes that goroutine the single owner of everything the frames drive.
// Like a display, the ticker keeps running; a frame callback is only invoked
// when one was requested.
type Loop struct {
	log      logx.Logger
	interval time.Duration
	tasks    chan func()
	done     chan struct{}
	doneOnce sync.Once

	mu        sync.Mutex
	seq       FrameID
	pendingID FrameID
	pending   FrameFunc

	frames  atomic.Uint64
	running atomic.Bool
}

var _ FrameSource = (*Loop)(nil)

func NewLoop(cfg LoopConfig, log logx.Logger) *Loop {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	return &Loop{
		log:      log,
		interval: time.Second / time.Duration(cfg.FrameRate),
		tasks:    make(chan func(), cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// FrameInterval is the time between two frames.
func (l *Loop) FrameInterval() time.Duration { return l.interval }

// Frames returns how many frame callbacks have been delivered.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

func (l *Loop) RequestFrame(fn FrameFunc) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.pendingID = l.seq
	l.pending = fn
	return l.seq
}

func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	if id != 0 && id == l.pendingID {
		l.pendingID = 0
		l.pending = nil
	}
	l.mu.Unlock()
}

// Post queues fn to run on the loop goroutine. It blocks while the queue is
// full and returns false once the loop has stopped. Calling Post from the
// loop goroutine itself with a full queue deadlocks.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers frames and posted tasks until ctx is done. It must be called
// at most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("frame loop already running")
	}
	defer l.doneOnce.Do(func() { close(l.done) })

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	origin := time.Now()

	l.log.Debug("frame loop started", logx.Duration("frame_interval", l.interval))
	defer l.log.Debug("frame loop stopped", logx.Uint64("frames", l.frames.Load()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			l.safely("task", fn)
		case t := <-ticker.C:
			l.mu.Lock()
			fn := l.pending
			l.pending = nil
			l.pendingID = 0
			l.mu.Unlock()
			if fn == nil {
				continue
			}
			l.frames.Add(1)
			ts := t.Sub(origin)
			l.safely("frame", func() { fn(ts) })
		}
	}
}

func (l *Loop) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("frame loop callback panicked",
				logx.String("kind", kind),
				logx.Err(fmt.Errorf("panic: %v", r)),
				logx.Stack(string(debug.Stack())),
			)
		}
	}()
	fn()
}
