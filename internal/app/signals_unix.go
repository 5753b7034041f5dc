//go:build unix

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"framesched/pkg/clock"
	logx "framesched/pkg/logx"
)

// watchVisibility maps SIGUSR1 to hidden and SIGUSR2 to visible.
func watchVisibility(ctx context.Context, sw *clock.Switch, log logx.Logger) error {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			hidden := sig == syscall.SIGUSR1
			log.Info("visibility signal", logx.String("signal", sig.String()), logx.Bool("hidden", hidden))
			if !sw.Set(hidden) {
				return nil
			}
		}
	}
}
