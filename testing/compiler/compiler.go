package compiler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Compiler builds binaries into a shared scratch directory.
type Compiler struct {
	dir     string
	ldflags string
}

func New() *Compiler {
	dir, err := os.MkdirTemp("", "compiled-services")
	if err != nil {
		panic(err)
	}
	return &Compiler{dir: dir, ldflags: "-w -s"}
}

// Dir is the directory the binaries are written to.
func (c *Compiler) Dir() string {
	return c.dir
}

// Cleanup removes every binary Compile produced.
func (c *Compiler) Cleanup() {
	_ = os.RemoveAll(c.dir)
}

// Work describes one main package to build. Target is the directory to
// run the build from and Source is the package path relative to it. If
// Result is non-nil the binary path is stored there as well as
// returned.
type Work struct {
	Name        string
	Target      string
	Source      string
	Environment []string

	Result *string
}

// Compile builds work.Source with the go tool and returns the path of
// the binary.
func (c *Compiler) Compile(ctx context.Context, work Work) (string, error) {
	dir, err := filepath.Abs(work.Target)
	if err != nil {
		return "", err
	}

	bin := filepath.Join(c.dir, work.Name)
	if targetOS(work.Environment) == "windows" {
		bin += ".exe"
	}

	// #nosec G204 - the inputs come from the test that calls us
	cmd := exec.CommandContext(ctx, goTool(), "build",
		"-ldflags="+c.ldflags,
		"-o", bin,
		work.Source,
	)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Env = append(cmd.Env, work.Environment...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}

	if work.Result != nil {
		*work.Result = bin
	}
	return bin, nil
}

// targetOS picks the GOOS out of env, falling back to the host.
func targetOS(env []string) string {
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "GOOS="); ok {
			return v
		}
	}
	return runtime.GOOS
}

func goTool() string {
	if goroot := os.Getenv("GOROOT"); goroot != "" {
		return filepath.Join(goroot, "bin", "go")
	}
	return "go"
}
