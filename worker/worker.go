package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/recontext"
)

// ErrShouldBackoff tells the loop there was no work to do, so it should
// start backing off.
var ErrShouldBackoff = errors.New("should back off")

type Config struct {
	Name string

	// NoWorkBackOff controls the delay between work cycles once WorkFunc
	// reports no work. Defaults to a jittered exponential backoff capped
	// at ten seconds.
	NoWorkBackOff backoff.BackOff

	// MaxWorkTime bounds one WorkFunc call. Defaults to a minute.
	MaxWorkTime time.Duration

	// WorkFunc does one unit of work. Return ErrShouldBackoff when there
	// was nothing to do; any other error is recorded and the loop
	// continues immediately.
	WorkFunc func(ctx context.Context) error

	waiter func(ctx context.Context, delay time.Duration)
}

// Run calls WorkFunc in a loop until ctx is cancelled. Each call gets
// its own deadline detached from ctx, so in-flight work is not cut off
// by shutdown.
func Run(ctx context.Context, cfg Config) {
	cfg = setDefaults(cfg)
	cfg.NoWorkBackOff.Reset()

	for ctx.Err() == nil {
		delay := doWork(ctx, cfg)
		if delay < 0 {
			cfg.NoWorkBackOff.Reset()
			continue
		}
		cfg.waiter(ctx, delay)
	}
}

func setDefaults(cfg Config) Config {
	if cfg.waiter == nil {
		cfg.waiter = sleep
	}
	if cfg.NoWorkBackOff == nil {
		cfg.NoWorkBackOff = defaultBackOff()
	}
	if cfg.MaxWorkTime <= 0 {
		cfg.MaxWorkTime = time.Minute
	}
	return cfg
}

func sleep(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	// Zero means NextBackOff never gives up, the loop idles forever.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// doWork runs one work cycle and returns the backoff delay to apply, or
// a negative delay when work was found and the loop should continue at
// once.
func doWork(ctx context.Context, cfg Config) (delay time.Duration) {
	ctx, cancel := recontext.WithNewTimeout(ctx, cfg.MaxWorkTime)
	defer cancel()

	ctx, span := o11y.StartSpan(ctx, "worker loop: "+cfg.Name)
	span.RecordMetric(o11y.Timing("worker_loop", "loop_name", "result"))
	span.AddField("loop_name", cfg.Name)
	var err error
	defer o11y.End(span, &err)

	// Handle panics the way net/http.ServeHTTP does, one bad work cycle
	// must not kill the loop.
	defer func() {
		if r := recover(); r != nil {
			err = o11y.HandlePanic(ctx, span, r, nil)
		}
	}()

	delay = -1
	err = cfg.WorkFunc(ctx)
	if errors.Is(err, ErrShouldBackoff) {
		delay = cfg.NoWorkBackOff.NextBackOff()
		err = nil
	}

	span.AddField("backoff_ms", delay.Milliseconds())
	return delay
}
