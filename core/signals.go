package core

import (
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals keeps SIGINT and SIGTSTP from stopping the shell, they
// interrupt the prompt instead. Children started afterwards still get the
// default behavior. Call stop to restore the default handling.
func WatchSignals(s *Shell) (stop func()) {
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTSTP)

	go func() {
		for {
			select {
			case <-signals:
				s.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}
