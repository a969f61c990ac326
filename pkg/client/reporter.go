package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/logx"
)

// rateLimitPause is how long the reporter suspends after a 429.
const rateLimitPause = 60 * time.Second

type reportItem struct {
	path string
	body []byte
	stop bool
}

// Reporter is the progress-report side channel: a background sink with a
// bounded mailbox. Sends never block; overflow is counted and dropped.
type Reporter struct {
	api  *api.Client
	mail chan reportItem

	dropped  atomic.Int64
	finished iox.AsyncCloser
}

// NewReporter creates a reporter with the given mailbox capacity.
func NewReporter(client *api.Client, capacity int) *Reporter {
	return &Reporter{
		api:      client,
		mail:     make(chan reportItem, capacity),
		finished: iox.NewAsyncCloser(),
	}
}

// Send enqueues a partial analysis result for the job. The payload is
// marshaled now, so later mutation of the result is safe. If the mailbox
// is full the report is dropped.
func (r *Reporter) Send(ctx context.Context, job *api.Job, partial *api.Result) {
	data, err := json.Marshal(partial)
	if err != nil {
		logx.Warningf(ctx, "Could not marshal progress report: %v", err)
		return
	}

	select {
	case r.mail <- reportItem{path: "analysis/" + job.Work.ID, body: data}:
	default:
		r.dropped.Inc()
		logx.Debugf(ctx, "Could not keep up with progress reports. Dropping one.")
	}
}

// Dropped returns the number of reports dropped on overflow.
func (r *Reporter) Dropped() int64 {
	return r.dropped.Load()
}

// Queued returns the current mailbox length.
func (r *Reporter) Queued() int {
	return len(r.mail)
}

// Stop drains the mailbox and enqueues the sentinel; the loop exits once
// it is consumed.
func (r *Reporter) Stop() {
	for {
		select {
		case <-r.mail:
		default:
			r.mail <- reportItem{stop: true}
			return
		}
	}
}

// Finished is closed when the loop has exited.
func (r *Reporter) Finished() <-chan struct{} {
	return r.finished.Closed()
}

// Run dequeues and posts reports until the sentinel arrives. Responses
// other than 204 are logged but not retried; a 429 suspends the loop.
func (r *Reporter) Run(ctx context.Context) {
	defer r.finished.Close()

	for item := range r.mail {
		if item.stop {
			return
		}

		resp, err := r.api.PostBytes(ctx, item.path, false, item.body)
		if err != nil {
			logx.Warningf(ctx, "Could not send progress report (%v). Continuing.", err)
			continue
		}
		switch {
		case resp.RateLimited():
			logx.Errorf(ctx, "Too many requests. Suspending progress reports for %v ...", rateLimitPause)
			time.Sleep(rateLimitPause)
		case resp.StatusCode != 204:
			logx.Errorf(ctx, "Expected status 204 for progress report, got %v", resp.StatusCode)
		}
	}
}
