//go:build unix

package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

func notifyUpdateSignal(sigc chan<- os.Signal) {
	signal.Notify(sigc, unix.SIGUSR1)
}

func isUpdateSignal(s os.Signal) bool {
	return s == unix.SIGUSR1
}
