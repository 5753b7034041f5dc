package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "framesched/pkg/logx"
)

// sdNotify sends a state to the service manager. Without NOTIFY_SOCKET it is
// a no-op.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// runWatchdog pings the systemd watchdog at half its interval for as long as
// alive succeeds. It returns immediately when the watchdog is off.
func runWatchdog(ctx context.Context, log logx.Logger, alive func(context.Context) error) error {
	every, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warn("watchdog config invalid", logx.Err(err))
		return nil
	}
	if every <= 0 {
		return nil
	}
	every /= 2
	log.Info("watchdog enabled", logx.Duration("ping_every", every))

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, every)
			err := alive(pctx)
			cancel()
			if err != nil {
				// A stuck loop stops the pings; systemd restarts the unit.
				log.Warn("frame loop unresponsive; skipping watchdog ping", logx.Err(err))
				continue
			}
			sdNotify(log, daemon.SdNotifyWatchdog)
		}
	}
}
