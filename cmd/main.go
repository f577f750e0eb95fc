// Command fleet-reminders generates preventive maintenance reminders for
// fleet vehicles, on a schedule, on demand over HTTP, or as a one-shot run.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
