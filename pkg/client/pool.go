package client

import (
	"context"
	"fmt"
	"time"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/config"
	"github.com/herohde/shoginet/pkg/logx"
)

// statInterval is how often the supervisor logs a work summary.
const statInterval = 60 * time.Second

// Event is an external control event delivered to the supervisor.
type Event int

const (
	// ShutdownSoon lets in-flight jobs finish before exiting. A second
	// ShutdownSoon aborts them.
	ShutdownSoon Event = iota
	// Shutdown aborts in-flight jobs and exits.
	Shutdown
	// UpdateRequired exits so that the caller can upgrade the client.
	UpdateRequired
)

// Pool sizes and supervises the workers and the progress reporter.
type Pool struct {
	conf     *config.Config
	api      *api.Client
	reporter *Reporter
	workers  []*Worker
}

// NewPool partitions the configured cores into per-worker thread buckets
// and creates one worker per bucket plus the shared reporter.
func NewPool(ctx context.Context, conf *config.Config) (*Pool, error) {
	client, err := api.NewClient(conf.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	instances := conf.Instances()
	buckets := coreBuckets(conf.Cores, instances)
	reporter := NewReporter(client, instances+4)

	workers := make([]*Worker, 0, instances)
	for i, bucket := range buckets {
		w := NewWorker(conf, client, reporter, bucket, conf.Memory/int64(instances), nil)
		w.SetName(fmt.Sprintf("><> %d", i+1))
		workers = append(workers, w)
	}

	return &Pool{
		conf:     conf,
		api:      client,
		reporter: reporter,
		workers:  workers,
	}, nil
}

// coreBuckets partitions cores into instance buckets whose sizes sum to
// cores.
func coreBuckets(cores, instances int) []int {
	buckets := make([]int, instances)
	for i := 0; i < cores; i++ {
		buckets[i%instances]++
	}
	return buckets
}

// Workers returns the pool's workers.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Run starts everything and supervises until an external event or a
// fatal worker error ends the pool. It returns api.ErrUpdateRequired when
// the server requested an upgrade.
func (p *Pool) Run(ctx context.Context, events <-chan Event) error {
	go p.reporter.Run(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	defer p.shutdown(ctx)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	var elapsed time.Duration
	stoppingSoon := false

	for {
		select {
		case <-tick.C:
			if err := p.checkWorkers(); err != nil {
				return err
			}
			if stoppingSoon && p.allFinished() {
				return nil
			}

			elapsed += time.Second
			if elapsed >= statInterval {
				elapsed = 0
				p.logStats(ctx)
			}

		case ev := <-events:
			switch ev {
			case ShutdownSoon:
				if stoppingSoon {
					logx.Infof(ctx, "### Good bye! Aborting pending jobs ...")
					return nil
				}
				stoppingSoon = true
				if p.anyJob() {
					logx.Infof(ctx, "### Stopping soon. Press ^C again to abort pending jobs ...")
				}
				for _, w := range p.workers {
					w.StopSoon()
				}

			case Shutdown:
				if p.anyJob() {
					logx.Infof(ctx, "### Good bye! Aborting pending jobs ...")
				} else {
					logx.Infof(ctx, "### Good bye!")
				}
				return nil

			case UpdateRequired:
				return api.ErrUpdateRequired
			}
		}
	}
}

// checkWorkers re-raises the first fatal worker error, if any.
func (p *Pool) checkWorkers() error {
	for _, w := range p.workers {
		if err := w.FatalError(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) allFinished() bool {
	for _, w := range p.workers {
		select {
		case <-w.Finished():
		default:
			return false
		}
	}
	return true
}

func (p *Pool) anyJob() bool {
	for _, w := range p.workers {
		if w.HasJob() {
			return true
		}
	}
	return false
}

func (p *Pool) logStats(ctx context.Context) {
	var positions, nodes int64
	for _, w := range p.workers {
		positions += w.Positions()
		nodes += w.Nodes()
	}
	logx.Infof(ctx, "[shoginet v%v] Analyzed %v positions, crunched %v million nodes",
		version, positions, nodes/1000/1000)
}

// shutdown hard-stops the workers, then the reporter, and joins them all.
func (p *Pool) shutdown(ctx context.Context) {
	for _, w := range p.workers {
		w.Stop(ctx)
	}
	p.reporter.Stop()

	for _, w := range p.workers {
		<-w.Finished()
	}
	<-p.reporter.Finished()
}
