package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quizdeck/quizdeck-backend/internal/roles/service"
)

// Scheduler runs the role expiry sweep on a fixed schedule.
type Scheduler struct {
	roles *service.Service
}

func NewScheduler(roles *service.Service) *Scheduler {
	return &Scheduler{roles: roles}
}

// Start initializes cron tasks. The sweep runs hourly; expired roles lose at
// most an hour of slack, which is acceptable for temporary teacher grants.
func (s *Scheduler) Start() {
	c := cron.New()

	_, err := c.AddFunc("@hourly", func() {
		s.runSweep()
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (role expiry sweep, hourly)")
	c.Start()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	demoted, err := s.roles.SweepExpired(ctx, time.Now())
	if err != nil {
		log.Printf("Role expiry sweep failed: %v", err)
		return
	}
	if demoted > 0 {
		log.Printf("Role expiry sweep demoted %d user(s)", demoted)
	}
}
