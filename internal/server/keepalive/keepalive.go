// Package keepalive periodically requests a public URL of the server so that
// hosts which idle inactive instances keep it running.
package keepalive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/threads/internal/logging"
	"github.com/dmitrijs2005/threads/internal/netx"
	"github.com/robfig/cron/v3"
)

type Job struct {
	url      string
	schedule string
	client   *http.Client
	logger   logging.Logger
}

// NewJob builds a job pinging url on a standard five-field cron schedule
// (descriptors such as "@every 10m" are accepted too).
func NewJob(url, schedule string, l logging.Logger) *Job {
	return &Job{
		url:      url,
		schedule: schedule,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   l.With("module", "keepalive"),
	}
}

// Enabled reports whether the job has something to ping.
func (j *Job) Enabled() bool {
	return j.url != "" && j.schedule != ""
}

// Run pings the URL on schedule until ctx is cancelled. It returns an error
// only when the schedule cannot be parsed.
func (j *Job) Run(ctx context.Context) error {
	if !j.Enabled() {
		j.logger.Info(ctx, "Keep-alive disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(j.schedule, func() { j.ping(ctx) }); err != nil {
		return fmt.Errorf("keep-alive schedule %q: %w", j.schedule, err)
	}

	j.logger.Info(ctx, "Starting keep-alive", "url", j.url, "schedule", j.schedule)
	c.Start()

	<-ctx.Done()

	j.logger.Info(ctx, "Stopping keep-alive...")
	<-c.Stop().Done()
	return nil
}

func (j *Job) ping(ctx context.Context) {
	if err := netx.Ping(ctx, j.client, j.url); err != nil {
		if ctx.Err() == nil {
			j.logger.Warn(ctx, "keep-alive request failed", "url", j.url, "error", err)
		}
		return
	}
	j.logger.Debug(ctx, "keep-alive request sent", "url", j.url)
}
