package app

import (
	"context"
	"time"

	"framesched/internal/eventbus"
	"framesched/internal/storage"
	"framesched/pkg/interval"
	logx "framesched/pkg/logx"
)

// journalEvents lists the bus events written to the journal.
var journalEvents = map[string]string{
	eventbus.IntervalFired:        "fire",
	eventbus.IntervalLimitReached: "limit_reached",
}

func recordFor(e eventbus.Event) (storage.Record, bool) {
	kind, ok := journalEvents[e.Type]
	if !ok {
		return storage.Record{}, false
	}
	st, ok := e.Data.(interval.State)
	if !ok {
		return storage.Record{}, false
	}
	return storage.Record{
		At:        e.Time,
		Name:      st.Name,
		Event:     kind,
		Iteration: st.Iteration,
		Remaining: st.Remaining,
		Delay:     st.Delay,
		Frame:     st.LastRunTime,
	}, true
}

// runJournal writes interval events from the bus to the store until ctx is
// done, then drains what is already buffered.
func runJournal(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) error {
	write := func(e eventbus.Event) {
		r, ok := recordFor(e)
		if !ok {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Append(wctx, r); err != nil {
			log.Warn("journal append failed", logx.String("interval", r.Name), logx.Err(err))
		}
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return nil
					}
					write(e)
				default:
					return nil
				}
			}
		case e, ok := <-events:
			if !ok {
				return nil
			}
			write(e)
		}
	}
}
