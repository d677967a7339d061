/*
scheduler.go - Periodic snapshot refresh

PURPOSE:
  Invokes the cache's refresh entry point on a cron cadence so the
  snapshot tracks the remote sheet without manual triggers. Refresh is
  invoked serially: cron's default chain skips a tick if the previous
  run is still in flight.

CONFIGURATION:
  - Spec: cron expression or @every duration (default: @every 30m)
  - Enabled only when a source URL is configured

USAGE:
  sched := NewRefreshScheduler(c, url, "@every 30m")
  if err := sched.Start(); err != nil { ... }
  // ... later
  sched.Stop()
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scribe/study-engine/cache"
)

// DefaultRefreshSpec is the fallback refresh cadence.
const DefaultRefreshSpec = "@every 30m"

// refreshTimeout bounds one scheduled refresh run. The fetcher's own
// retry budget fits comfortably inside it.
const refreshTimeout = 2 * time.Minute

// RefreshScheduler periodically refreshes the snapshot from the
// configured source.
type RefreshScheduler struct {
	Cache     *cache.Cache
	SourceURL string
	Spec      string

	cron *cron.Cron
}

// NewRefreshScheduler creates a scheduler. An empty spec falls back to
// DefaultRefreshSpec.
func NewRefreshScheduler(c *cache.Cache, sourceURL, spec string) *RefreshScheduler {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	return &RefreshScheduler{Cache: c, SourceURL: sourceURL, Spec: spec}
}

// Start begins the scheduler. Refresh runs serially: an overlapping
// tick is skipped, not queued behind a slow fetch.
func (rs *RefreshScheduler) Start() error {
	if rs.SourceURL == "" {
		log.Println("[Scheduler] No source URL configured, not starting")
		return nil
	}

	rs.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := rs.cron.AddFunc(rs.Spec, rs.runOnce); err != nil {
		return fmt.Errorf("failed to schedule refresh %q: %w", rs.Spec, err)
	}
	rs.cron.Start()

	log.Printf("[Scheduler] Started with cadence %q", rs.Spec)
	return nil
}

// Stop stops the scheduler and waits for an in-flight refresh to finish.
func (rs *RefreshScheduler) Stop() {
	if rs.cron != nil {
		<-rs.cron.Stop().Done()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RefreshScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	stamp, err := rs.Cache.Refresh(ctx, rs.SourceURL)
	if err != nil {
		// The previous snapshot stays authoritative.
		log.Printf("[Scheduler] Refresh failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Snapshot refreshed at %s", stamp)
}
