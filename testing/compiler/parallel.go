package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Parallel struct {
	compiler    *Compiler
	parallelism int
	work        []Work
}

func NewParallel(parallelism int) *Parallel {
	if parallelism <= 0 {
		parallelism = 2
	}

	return &Parallel{
		compiler:    New(),
		parallelism: parallelism,
	}
}

func (t *Parallel) Dir() string {
	return t.compiler.Dir()
}

func (t *Parallel) Cleanup() {
	t.compiler.Cleanup()
}

// Add queues work for the next Run. Work that already has a Result is skipped.
func (t *Parallel) Add(work Work) {
	if work.Result != nil && *work.Result != "" {
		return
	}
	mustValidateWork(work)
	t.work = append(t.work, work)
}

func (t *Parallel) Run(ctx context.Context) error {
	workCh := make(chan Work, len(t.work))
	for _, w := range t.work {
		workCh <- w
	}
	close(workCh)
	t.work = nil

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < t.parallelism; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case w, ok := <-workCh:
					if !ok {
						return nil
					}
					if _, err := t.compiler.Compile(ctx, w); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

func mustValidateWork(work Work) {
	if work.Name == "" {
		panic("work.Name not set")
	}
	if work.Target == "" {
		panic("work.Target not set")
	}
	if work.Source == "" {
		panic("work.Source not set")
	}
}
