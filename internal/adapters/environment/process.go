package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// Process is the environment of the running process, shared with every
// child process and container started afterwards
type Process struct {
	log *slog.Logger
}

// NewProcess creates the process environment adapter
func NewProcess(log *slog.Logger) *Process {
	return &Process{log: log.With("component", "Environment")}
}

// Load reads dotenv files into the process environment. Variables that are
// already set keep their value and missing files are skipped.
func (p *Process) Load(files ...string) error {
	var existing []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.log.Debug("env file not found", "path", file)
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", file, err)
		}
		existing = append(existing, file)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	p.log.Debug("loaded env files", "paths", existing)
	return nil
}

func (p *Process) Get(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (p *Process) Set(key, value string) error {
	return os.Setenv(key, value)
}

// Snapshot returns a copy of the current environment
func (p *Process) Snapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Ensure the adapter implements the interface
var _ usecase.Environment = (*Process)(nil)
