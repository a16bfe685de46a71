package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pluvio/dbx/internal/syncbuffer"
	"github.com/pluvio/dbx/testing/poll"
)

const (
	portDeadline  = 20 * time.Second
	readyDeadline = 10 * time.Second
	stopDeadline  = 11 * time.Second
)

// Runner starts service binaries and stops them all at the end.
type Runner struct {
	baseEnv    []string
	dynamicEnv func() []string

	mu       sync.Mutex
	cleanups []func() error
}

func New(baseEnv ...string) *Runner {
	return &Runner{baseEnv: baseEnv}
}

// NewWithDynamicEnv calls dynamicEnv on every Start, for settings that
// are not known until the service launches, such as per-test database
// names.
func NewWithDynamicEnv(baseEnv []string, dynamicEnv func() []string) *Runner {
	return &Runner{
		baseEnv:    baseEnv,
		dynamicEnv: dynamicEnv,
	}
}

// Run starts the binary and blocks until its API and admin servers have
// reported their ports and the readiness probe passes. The process is
// stopped when the Runner is stopped.
func (r *Runner) Run(serverName, binary string, extraEnv ...string) (*Result, error) {
	result, err := r.Start(binary, extraEnv...)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	err = poll.WaitFor(ctx, portDeadline, func() (bool, error) {
		return result.scanPorts(serverName), nil
	})
	if err == nil {
		err = poll.WaitFor(ctx, readyDeadline, func() (bool, error) {
			if perr := probeReady(result.adminPort); perr != nil {
				fmt.Printf("readiness failure: %v\n", perr)
				return false, nil
			}
			return true, nil
		})
	}
	if err != nil {
		_ = result.Stop()
		return nil, fmt.Errorf("%s never became ready: %w", serverName, err)
	}

	r.addStop(result.Stop)
	return result, nil
}

// Start launches the binary without waiting for it to become ready.
// The process logs are captured, interleaved with the test output. The
// caller is responsible for stopping the process.
func (r *Runner) Start(binary string, extraEnv ...string) (*Result, error) {
	//#nosec:G204 // tests launch the binaries they just built
	cmd := exec.Command(binary)

	env := append([]string(nil), r.baseEnv...)
	if r.dynamicEnv != nil {
		env = append(env, r.dynamicEnv()...)
	}
	cmd.Env = append(env, extraEnv...)

	result := &Result{
		cmd:  cmd,
		logs: &syncbuffer.SyncBuffer{},
	}
	cmd.Stdout = io.MultiWriter(result.logs, os.Stdout)
	cmd.Stderr = io.MultiWriter(result.logs, os.Stderr)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return result, nil
}

// Stop stops every process Run launched, in parallel, returning the
// first exit error.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := errgroup.Group{}
	for _, cleanup := range r.cleanups {
		g.Go(cleanup)
	}
	r.cleanups = nil
	return g.Wait()
}

func (r *Runner) addStop(stop func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, stop)
}

// Result is a started process.
type Result struct {
	cmd  *exec.Cmd
	logs *syncbuffer.SyncBuffer

	apiPort   int
	adminPort int
}

// Logs returns everything the process has written so far.
func (r *Result) Logs() string {
	return r.logs.String()
}

func (r *Result) APIAddr() string {
	return fmt.Sprintf("http://localhost:%d", r.apiPort)
}

func (r *Result) AdminAddr() string {
	return fmt.Sprintf("http://localhost:%d", r.adminPort)
}

// Stop interrupts the process and waits for it to drain and exit,
// killing it if that takes too long.
func (r *Result) Stop() error {
	// Mark where the interleaved process output ends, go test -json
	// garbles it otherwise (golang.org/issue/38063).
	defer fmt.Println("sub-process stopped")

	if err := r.cmd.Process.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("failed to SIGINT: %w", err)
	}

	select {
	case <-time.After(stopDeadline):
		r.cmd.Process.Kill() //nolint: errcheck
		return errors.New("SIGINT timed out")
	case err := <-r.Wait():
		return err
	}
}

// Wait returns a channel that delivers the process exit error.
func (r *Result) Wait() chan error {
	ch := make(chan error)
	go func() {
		ch <- r.cmd.Wait()
		close(ch)
	}()
	return ch
}

// scanPorts looks in the logs for the startup lines the admin and the
// named server write, recording the bound ports. The admin port must be
// present, the named server is optional so admin-only services work.
func (r *Result) scanPorts(serverName string) bool {
	lines := strings.Split(r.logs.String(), "\n")

	admin := portFromLogs(lines, "admin")
	if admin == "" {
		return false
	}
	r.adminPort, _ = strconv.Atoi(admin)
	r.apiPort, _ = strconv.Atoi(portFromLogs(lines, serverName))
	return true
}

var portPattern = regexp.MustCompile(`app.address=.+?:(\d+)`)

func portFromLogs(lines []string, serverName string) string {
	for _, l := range lines {
		if !strings.Contains(l, "httpserver: new "+serverName) {
			continue
		}
		if m := portPattern.FindStringSubmatch(l); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

func probeReady(port int) error {
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/ready", port)) //nolint:noctx
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("got non 200 response: %d: %s", resp.StatusCode, b)
	}
	return nil
}
