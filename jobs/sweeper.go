// Package jobs runs the background maintenance schedule.
package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"assethub/config"
	"assethub/models"
)

// CascadeSource lists cascade logs that never reached a terminal state.
type CascadeSource interface {
	ListUnfinished(ctx context.Context, before time.Time) ([]models.CascadeLog, error)
}

// Scheduler owns the cron instance and the stores its jobs read.
type Scheduler struct {
	sched    *cron.Cron
	cascades CascadeSource
}

func NewScheduler(cascades CascadeSource) *Scheduler {
	return &Scheduler{sched: cron.New(), cascades: cascades}
}

// Start registers the jobs and kicks off the schedule.
func (s *Scheduler) Start() {
	if _, err := s.sched.AddFunc(config.SweepSchedule, s.SweepCascades); err != nil {
		logrus.Errorf("init sweep job error: %v", err)
		return
	}
	s.sched.Start()
	logrus.Infof("Cascade sweeper scheduled: %s (age threshold %v)", config.SweepSchedule, config.SweepAge)
}

func (s *Scheduler) Stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
}

// SweepCascades reports cascades that never finished: still running past the
// age threshold (the process died mid-cascade) or failed partway. It does not
// resume them; the step detail in the log is for an operator to reconcile.
func (s *Scheduler) SweepCascades() {
	defer func() {
		if err := recover(); err != nil {
			logrus.Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Add(-config.SweepAge)
	logs, err := s.cascades.ListUnfinished(ctx, cutoff)
	if err != nil {
		logrus.Errorf("cascade sweep failed: %v", err)
		return
	}
	if len(logs) == 0 {
		return
	}

	for _, entry := range logs {
		steps := make([]string, 0, len(entry.Steps))
		for _, st := range entry.Steps {
			steps = append(steps, st.Name)
		}
		logrus.WithFields(logrus.Fields{
			"log":     entry.ID.Hex(),
			"entity":  entry.EntityID.Hex(),
			"action":  entry.Action,
			"status":  entry.Status,
			"steps":   strings.Join(steps, ","),
			"failed":  entry.FailedStep,
			"started": entry.StartedAt.Format(time.RFC3339),
		}).Warn("cascade needs manual reconciliation")
	}

	logrus.Warnf("Cascade sweep: %d unfinished cascade(s) older than %v", len(logs), config.SweepAge)
}
