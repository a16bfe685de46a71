package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"

	"github.com/pluvio/dbx/o11y"
)

// DefaultName is the pool name Get resolves.
const DefaultName = "default"

// Pool is a named logical database.
type Pool struct {
	name           string
	kind           Kind
	db             *sqlx.DB
	ad             adapter
	acquireTimeout time.Duration
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Kind() Kind {
	return p.kind
}

// DB exposes the underlying handle as an escape hatch. It is nil for
// unrecognized-engine pools opened from a URL.
func (p *Pool) DB() *sqlx.DB {
	return p.db
}

// Registry is a concurrent table of named pools.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

func NewRegistry() *Registry {
	return &Registry{pools: map[string]*Pool{}}
}

// Default is the process-wide registry used by the package level
// functions.
var Default = NewRegistry()

// Open parses the configured URL, connects through the engine's adapter
// and registers the pool under name. Opening a name twice is an error. A
// URL with an unrecognized scheme registers a placeholder pool that
// fails structured operations but keeps the engine name.
func (r *Registry) Open(ctx context.Context, name string, cfg Config) (p *Pool, err error) {
	ctx, span := o11y.StartSpan(ctx, "db: open "+name)
	defer o11y.End(span, &err)

	if name == "" {
		return nil, &ConfigurationError{Msg: "pool name required"}
	}
	if r.lookup(name) != nil {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("pool %q already open", name)}
	}

	p, err = connect(ctx, name, cfg.withDefaults(), span)
	if err != nil {
		return nil, err
	}
	if err := r.insert(p); err != nil {
		if p.db != nil {
			_ = p.db.Close()
		}
		return nil, err
	}
	return p, nil
}

// OpenDB registers a pool over an existing database handle. It is the
// entry point for engines outside the recognized set, where the caller
// owns the driver, and for tests with fake drivers.
func (r *Registry) OpenDB(name string, kind Kind, sqldb *sql.DB) (*Pool, error) {
	if name == "" {
		return nil, &ConfigurationError{Msg: "pool name required"}
	}
	ad, ok := adapters[kind]
	if !ok {
		ad = otherAdapter{name: kind}
	}
	p := &Pool{
		name:           name,
		kind:           kind,
		db:             sqlx.NewDb(sqldb, ad.driverName()),
		ad:             ad,
		acquireTimeout: Config{}.withDefaults().AcquireTimeout,
	}
	if err := r.insert(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Lookup returns the pool registered under name.
func (r *Registry) Lookup(name string) (*Pool, error) {
	if p := r.lookup(name); p != nil {
		return p, nil
	}
	return nil, &ConfigurationError{Msg: fmt.Sprintf("no pool named %q", name)}
}

// Get returns the pool named "default".
func (r *Registry) Get() (*Pool, error) {
	return r.Lookup(DefaultName)
}

// Names returns the registered pool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close removes the named pool and tears down its connections. It
// reports whether the name was registered, so closing twice returns
// false the second time.
func (r *Registry) Close(ctx context.Context, name string) bool {
	r.mu.Lock()
	p, ok := r.pools[name]
	delete(r.pools, name)
	r.mu.Unlock()
	if !ok {
		return false
	}
	p.close(ctx)
	return true
}

// CloseAll tears down every registered pool, for shutdown hooks.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	pools := r.pools
	r.pools = map[string]*Pool{}
	r.mu.Unlock()
	for _, p := range pools {
		p.close(ctx)
	}
}

func (r *Registry) lookup(name string) *Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pools[name]
}

func (r *Registry) insert(p *Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[p.name]; ok {
		return &ConfigurationError{Msg: fmt.Sprintf("pool %q already open", p.name)}
	}
	r.pools[p.name] = p
	return nil
}

func (p *Pool) close(ctx context.Context) {
	if p.db == nil {
		return
	}
	if err := p.db.Close(); err != nil {
		o11y.LogError(ctx, "db: close "+p.name, err)
	}
}

func connect(ctx context.Context, name string, cfg Config, span o11y.Span) (*Pool, error) {
	u, err := dburl.Parse(cfg.URL.Raw())
	if err != nil {
		if errors.Is(err, dburl.ErrUnknownDatabaseScheme) {
			return placeholderPool(name, cfg.URL.Raw(), span)
		}
		return nil, &ConfigurationError{Msg: "cannot parse database url", Err: err}
	}

	kind := kindFromDriver(u.Driver)
	if !kind.Recognized() {
		// dburl knows the scheme but we ship no driver for it. Keep the
		// scheme the caller wrote as the engine name, not dburl's driver.
		kind = Kind(strings.ToLower(u.OriginalScheme))
	}
	span.AddRawField("db.system", string(kind))
	span.AddRawField("db.pool", name)
	if !kind.Recognized() {
		return &Pool{name: name, kind: kind, ad: otherAdapter{name: kind}}, nil
	}

	ad := adapters[kind]
	dsn, err := ad.dsn(u)
	if err != nil {
		return nil, &ConfigurationError{Msg: "cannot derive dsn", Err: err}
	}

	db, err := sqlx.Open(ad.driverName(), dsn)
	if err != nil {
		return nil, &ConfigurationError{Msg: "cannot open database", Err: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ExecutionError{Op: "open " + name, Err: ad.mapError(err)}
	}

	return &Pool{
		name:           name,
		kind:           kind,
		db:             db,
		ad:             ad,
		acquireTimeout: cfg.AcquireTimeout,
	}, nil
}

func placeholderPool(name, raw string, span o11y.Span) (*Pool, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, &ConfigurationError{Msg: "cannot parse database url", Err: err}
	}
	kind := Kind(strings.ToLower(u.Scheme))
	span.AddRawField("db.system", string(kind))
	span.AddRawField("db.pool", name)
	return &Pool{name: name, kind: kind, ad: otherAdapter{name: kind}}, nil
}

// Open opens a pool in the default registry.
func Open(ctx context.Context, name string, cfg Config) (*Pool, error) {
	return Default.Open(ctx, name, cfg)
}

// Lookup finds a pool in the default registry.
func Lookup(name string) (*Pool, error) {
	return Default.Lookup(name)
}

// GetDefault returns the default registry's "default" pool.
func GetDefault() (*Pool, error) {
	return Default.Get()
}

// Close closes a pool in the default registry.
func Close(ctx context.Context, name string) bool {
	return Default.Close(ctx, name)
}

// CloseAll closes every pool in the default registry.
func CloseAll(ctx context.Context) {
	Default.CloseAll(ctx)
}
