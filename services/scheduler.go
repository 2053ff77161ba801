// services/scheduler.go
package services

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCensus logs how many matches and sockets are live every interval.
// Callers stop it with Shutdown on the returned scheduler.
func StartCensus(registry *Registry, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			matches, clients := registry.Stats()
			log.Printf("[CENSUS] %d match(es) with live sockets, %d socket(s) total", matches, clients)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule census job: %w", err)
	}

	sched.Start()
	return sched, nil
}
