//go:build !unix

package app

import (
	"context"

	"framesched/pkg/clock"
	logx "framesched/pkg/logx"
)

// watchVisibility is a no-op where SIGUSR1/SIGUSR2 do not exist; use
// App.SetHidden instead.
func watchVisibility(ctx context.Context, _ *clock.Switch, _ logx.Logger) error {
	<-ctx.Done()
	return nil
}
