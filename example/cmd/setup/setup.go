// Package setup carries the wiring shared by every example binary: the
// common cli flags, o11y bootstrap and the notes database pool.
package setup

import (
	"context"
	"fmt"
	_ "time/tzdata" // embed tzdata so the binaries run in scratch containers

	"github.com/gwatts/rootcerts"

	"github.com/pluvio/dbx/config/o11y"
	"github.com/pluvio/dbx/config/secret"
	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/system"
)

type CLI struct {
	AdminAddr string `env:"ADMIN_ADDR" default:":8001" help:"Admin API listen address"`

	O11yStatsd           string        `name:"o11y-statsd" env:"O11Y_STATSD" default:"localhost:8125" help:"Statsd metrics destination"`
	O11yHoneycombEnabled bool          `name:"o11y-honeycomb" env:"O11Y_HONEYCOMB" default:"true" help:"Send spans to honeycomb"`
	O11yHoneycombDataset string        `name:"o11y-honeycomb-dataset" env:"O11Y_HONEYCOMB_DATASET" default:"dbx"`
	O11yHoneycombKey     secret.String `name:"o11y-honeycomb-key" env:"O11Y_HONEYCOMB_KEY" placeholder:"KEY"`
	O11yFormat           string        `name:"o11y-format" env:"O11Y_FORMAT" enum:"json,color,text" default:"json" help:"Stderr log format"`
	O11yRollbarToken     secret.String `name:"o11y-rollbar-token" env:"O11Y_ROLLBAR_TOKEN" placeholder:"ACCESS-TOKEN"`
	O11yRollbarEnv       string        `name:"o11y-rollbar-env" env:"O11Y_ROLLBAR_ENV" default:"production"`

	DBURL secret.String `name:"db-url" env:"DB_URL" default:"sqlite:example.db" help:"Notes database URL"`
}

// init installs a current root cert bundle, the scratch images the binaries
// ship in have no cert store of their own.
func init() {
	if err := rootcerts.UpdateDefaultTransport(); err != nil {
		panic(fmt.Errorf("could not install bundled root certs: %w", err))
	}
}

func LoadO11y(version, mode string, cli CLI) (context.Context, func(context.Context), error) {
	cfg := o11y.Config{
		Statsd:            cli.O11yStatsd,
		RollbarToken:      cli.O11yRollbarToken,
		RollbarEnv:        cli.O11yRollbarEnv,
		RollbarServerRoot: "github.com/pluvio/dbx/example",
		HoneycombEnabled:  cli.O11yHoneycombEnabled,
		HoneycombDataset:  cli.O11yHoneycombDataset,
		HoneycombKey:      cli.O11yHoneycombKey,
		Format:            cli.O11yFormat,
		Version:           version,
		Service:           "example",
		StatsNamespace:    "pluvio.example.",
		Mode:              mode,
	}
	return o11y.Setup(context.Background(), cfg)
}

func LoadPool(ctx context.Context, cli CLI, sys *system.System) (*db.Pool, error) {
	return db.Load(ctx, "notes", db.Config{
		URL: cli.DBURL,
	}, sys)
}
