package cron

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/metrics"
	"github.com/bher20/ubill/internal/storage"
	"github.com/robfig/cron/v3"
)

const (
	jobName          = "rotate_access_codes"
	rotationLockKey  = int64(7411)
	intervalSetting  = "code_rotate_interval"
	defaultIntervalS = "86400"
)

// Run starts the access-code rotation worker. The interval comes from
// UBILL_CODE_ROTATE_SECONDS or the "code_rotate_interval" setting, which may
// be either integer seconds or a standard cron expression. An advisory lock
// keeps the rotation single-flight when multiple instances share a database.
func Run(ctx context.Context, st storage.Storage, codes *accesscode.Service) error {
	setting := defaultIntervalS
	if raw := os.Getenv("UBILL_CODE_ROTATE_SECONDS"); raw != "" {
		setting = raw
	}
	if val, err := st.GetSetting(ctx, intervalSetting); err == nil && val != "" {
		setting = val
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	nextRun := nextRunAfter(setting, time.Now())

	log.Printf("rotation worker starting, interval setting=%q", setting)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := st.GetSetting(ctx, intervalSetting); err == nil && val != "" && val != setting {
				log.Printf("rotation: interval updated from %q to %q", setting, val)
				setting = val
				nextRun = nextRunAfter(setting, time.Now())
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			ok, err := st.AcquireAdvisoryLock(ctx, rotationLockKey)
			if err != nil {
				log.Printf("rotation: acquire advisory lock failed: %v", err)
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = nextRunAfter(setting, time.Now())
				continue
			}
			if !ok {
				log.Printf("rotation: lock held by another worker, skipping run")
				nextRun = nextRunAfter(setting, time.Now())
				continue
			}

			runErr := func() error {
				defer func() {
					if _, err := st.ReleaseAdvisoryLock(ctx, rotationLockKey); err != nil {
						log.Printf("rotation: release advisory lock failed: %v", err)
					}
				}()
				_, err := codes.Regenerate(ctx)
				return err
			}()

			metrics.UpdateJobMetrics(jobName, started, runErr)
			dur := time.Since(started)
			errMsg := ""
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := st.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
				log.Printf("rotation: update scheduled_jobs failed: %v", err)
			}

			if runErr != nil {
				log.Printf("rotation: job completed with error: %v (duration=%s)", runErr, dur)
			} else {
				log.Printf("rotation: job completed, access codes replaced (duration=%s)", dur)
			}

			nextRun = nextRunAfter(setting, time.Now())
		}
	}
}

// nextRunAfter interprets setting as integer seconds or a cron expression.
func nextRunAfter(setting string, from time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return from.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(from)
	}
	return from.Add(24 * time.Hour)
}
