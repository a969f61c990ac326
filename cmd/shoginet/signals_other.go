//go:build !unix

package main

import (
	"os"
)

// No SIGUSR1 outside unix.
func notifyUpdateSignal(sigc chan<- os.Signal) {}

func isUpdateSignal(s os.Signal) bool {
	return false
}
