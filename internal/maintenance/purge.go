// Package maintenance runs periodic cleanup of expired shares and sessions.
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ShareGrace is how long an expired share link is kept before it is purged,
// so recently expired links still answer 410 instead of 404.
const ShareGrace = 24 * time.Hour

// ShareStore deletes shares that expired before cutoff.
type ShareStore interface {
	PurgeExpiredShares(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionStore deletes refresh sessions and revocations past their expiry.
type SessionStore interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Report counts what one purge removed.
type Report struct {
	Shares   int64
	Sessions int64
}

type Purger struct {
	shares   ShareStore
	sessions SessionStore
	now      func() time.Time
	timeout  time.Duration
	cron     *cron.Cron
}

// NewPurger creates a purger. sessions may be nil.
func NewPurger(shares ShareStore, sessions SessionStore) *Purger {
	return &Purger{
		shares:   shares,
		sessions: sessions,
		now:      time.Now,
		timeout:  time.Minute,
	}
}

// RunOnce performs a single purge.
func (p *Purger) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	now := p.now().UTC()

	n, err := p.shares.PurgeExpiredShares(ctx, now.Add(-ShareGrace))
	if err != nil {
		return report, fmt.Errorf("purge shares: %w", err)
	}
	report.Shares = n

	if p.sessions != nil {
		n, err = p.sessions.PurgeExpiredSessions(ctx, now)
		if err != nil {
			return report, fmt.Errorf("purge sessions: %w", err)
		}
		report.Sessions = n
	}
	return report, nil
}

// Start schedules RunOnce on schedule, a standard five-field cron expression or a
// descriptor such as "@hourly".
func (p *Purger) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, p.tick); err != nil {
		return fmt.Errorf("schedule purge %q: %w", schedule, err)
	}
	p.cron = c
	c.Start()
	log.Printf("maintenance: purge scheduled %s", schedule)
	return nil
}

func (p *Purger) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	report, err := p.RunOnce(ctx)
	if err != nil {
		log.Printf("maintenance: %v", err)
		return
	}
	if report.Shares > 0 || report.Sessions > 0 {
		log.Printf("maintenance: purged %d shares, %d sessions", report.Shares, report.Sessions)
	}
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
