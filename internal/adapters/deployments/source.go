package deployments

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

// ArtifactSource lists and reads deployment artifact files
type ArtifactSource interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// FSSource reads artifacts from a directory on a filesystem
type FSSource struct {
	fs  afero.Fs
	dir string
}

// NewFSSource creates a source over dir in fs
func NewFSSource(fs afero.Fs, dir string) *FSSource {
	return &FSSource{fs: fs, dir: dir}
}

func (s *FSSource) List(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *FSSource) Read(ctx context.Context, name string) ([]byte, error) {
	return afero.ReadFile(s.fs, filepath.Join(s.dir, name))
}

// Execer runs a command inside a container
type Execer interface {
	Exec(ctx context.Context, container string, argv []string, opts domain.ComposeOptions) (*domain.ExecResult, error)
}

// ContainerSource reads artifacts from a directory inside a running container
type ContainerSource struct {
	exec      Execer
	container string
	dir       string
	opts      domain.ComposeOptions
}

// NewContainerSource creates a source over dir inside container
func NewContainerSource(exec Execer, container, dir string, opts domain.ComposeOptions) *ContainerSource {
	return &ContainerSource{exec: exec, container: container, dir: dir, opts: opts}
}

func (s *ContainerSource) List(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, "ls", "-1", "-p", s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		// -p marks directories with a trailing slash
		if line == "" || strings.HasSuffix(line, "/") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func (s *ContainerSource) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := s.run(ctx, "cat", path.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (s *ContainerSource) run(ctx context.Context, argv ...string) (string, error) {
	result, err := s.exec.Exec(ctx, s.container, argv, s.opts)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%s in %s exited with code %d: %s",
			argv[0], s.container, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}
