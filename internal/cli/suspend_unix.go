//go:build unix

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// watchSuspend marks the user away while the shell has taskctl stopped
// (Ctrl-Z) and back online after `fg`. It returns when ctx is done.
func watchSuspend(ctx context.Context, v visibility) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTSTP, syscall.SIGCONT)
	defer signal.Stop(sig)

	followSuspend(ctx, sig, v, func() {
		// Stop for real: drop our handler, re-raise, and take it back on
		// continue.
		signal.Reset(syscall.SIGTSTP)
		_ = syscall.Kill(os.Getpid(), syscall.SIGTSTP)
	}, func() {
		signal.Notify(sig, syscall.SIGTSTP)
	})
}

func followSuspend(ctx context.Context, sig <-chan os.Signal, v visibility, stop, resume func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			switch s {
			case syscall.SIGTSTP:
				v.SetVisible(false)
				stop()
			case syscall.SIGCONT:
				resume()
				v.SetVisible(true)
			}
		}
	}
}
