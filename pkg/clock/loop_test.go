package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "framesched/pkg/logx"
)

func TestLoopDeliversFramesAndTasks(t *testing.T) {
	t.Parallel()
	l := NewLoop(LoopConfig{FrameRate: 200}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	frames := make(chan time.Duration, 4)
	delivered := 0
	var step FrameFunc
	step = func(ts time.Duration) {
		delivered++
		select {
		case frames <- ts:
		default:
		}
		if delivered < 2 {
			l.RequestFrame(step)
		}
	}
	if err := l.Do(ctx, func() { l.RequestFrame(step) }); err != nil {
		t.Fatalf("Do: %v", err)
	}

	var last time.Duration
	for i := 0; i < 2; i++ {
		select {
		case ts := <-frames:
			if ts <= last {
				t.Fatalf("timestamps must increase: %v after %v", ts, last)
			}
			last = ts
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d not delivered", i)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	if l.Post(func() {}) {
		t.Fatal("Post after stop should report false")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Do after stop = %v, want ErrLoopStopped", err)
	}
}

func TestLoopRecoversFromPanickingTask(t *testing.T) {
	t.Parallel()
	l := NewLoop(LoopConfig{}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(ctx, func() { ran = true }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !ran {
		t.Fatal("loop stopped serving tasks after a panic")
	}
	if l.FrameInterval() != time.Second/60 {
		t.Fatalf("FrameInterval = %v", l.FrameInterval())
	}
}
