package main

import (
	"context"
	"errors"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"time"

	"github.com/alecthomas/kong"

	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/httpserver"
	"github.com/pluvio/dbx/httpserver/healthcheck"
	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/rundef"
	"github.com/pluvio/dbx/system"
	"github.com/pluvio/dbx/termination"
	"github.com/pluvio/dbx/worker"

	"github.com/pluvio/dbx/example/api/api"
	"github.com/pluvio/dbx/example/cmd"
	"github.com/pluvio/dbx/example/cmd/setup"
	"github.com/pluvio/dbx/example/migrations"
	"github.com/pluvio/dbx/example/notes"
)

type cli struct {
	setup.CLI

	ShutdownDelay time.Duration `env:"SHUTDOWN_DELAY" default:"5s" help:"Delay shutdown by this amount" hidden:""`
	APIAddr       string        `env:"API_ADDR" default:":8000" help:"API listen address"`
	PurgeAge      time.Duration `env:"PURGE_AGE" default:"168h" help:"Purge soft deleted notes older than this"`
}

func main() {
	err := run(cmd.Version, cmd.Date)
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		log.Fatal("unexpected error: ", err)
	}
	log.Println("shutdown complete")
}

func run(version, date string) (err error) {
	cli := cli{}
	kong.Parse(&cli)

	ctx, o11yCleanup, err := setup.LoadO11y(version, "api", cli.CLI)
	if err != nil {
		return err
	}
	defer o11yCleanup(ctx)

	err = rundef.Defaults(ctx)
	if err != nil {
		return err
	}

	ctx, runSpan := o11y.StartSpan(ctx, "main: run")
	defer o11y.End(runSpan, &err)

	o11y.Log(ctx, "starting api",
		o11y.Field("version", version),
		o11y.Field("date", date),
	)

	sys := system.New()
	defer sys.Cleanup(ctx)

	err = loadAPI(ctx, cli, sys)
	if err != nil {
		return err
	}

	// Should be last so it collects all the health checks
	_, err = healthcheck.Load(ctx, cli.AdminAddr, sys)
	if err != nil {
		return err
	}

	return sys.Run(ctx, cli.ShutdownDelay)
}

func loadAPI(ctx context.Context, cli cli, sys *system.System) error {
	pool, err := setup.LoadPool(ctx, cli.CLI, sys)
	if err != nil {
		return err
	}
	sys.AddGauges(db.Default)

	err = migrations.Apply(ctx, pool)
	if err != nil {
		return err
	}

	store, err := notes.NewStore(pool)
	if err != nil {
		return err
	}

	loadPurger(cli, store, sys)

	a := api.New(ctx, api.Options{
		Store: store,
	})

	_, err = httpserver.Load(ctx, httpserver.Config{
		Name:    "api",
		Addr:    cli.APIAddr,
		Handler: a.Handler(),
	}, sys)
	return err
}

func loadPurger(cli cli, store *notes.Store, sys *system.System) {
	sys.AddService(func(ctx context.Context) error {
		worker.Run(ctx, worker.Config{
			Name:        "note-purger",
			MaxWorkTime: time.Minute,
			WorkFunc: func(ctx context.Context) error {
				n, err := store.PurgeDeleted(ctx, time.Now().Add(-cli.PurgeAge))
				if err != nil {
					return err
				}
				if n == 0 {
					return worker.ErrShouldBackoff
				}
				return nil
			},
		})
		return nil
	})
}
