package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// Archive moves the node data directory in and out of a .tar.gz file
type Archive struct {
	dataDir     string
	archivePath string
	out         io.Writer
	showBars    bool
	log         *slog.Logger
}

// NewArchive creates the data archive for the configured paths
func NewArchive(cfg *domain.Config, streams usecase.Streams, log *slog.Logger) *Archive {
	return &Archive{
		dataDir:     cfg.Env.Paths.Data,
		archivePath: cfg.Env.Paths.Archive,
		out:         streams.Out,
		showBars:    true,
		log:         log.With("component", "DataArchive"),
	}
}

// Compress writes the data directory to the archive file. The archive is
// replaced only once it has been written completely.
func (a *Archive) Compress(ctx context.Context) error {
	if err := a.checkPaths(); err != nil {
		return err
	}
	start := time.Now()

	total, err := dirSize(a.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", a.dataDir, err)
	}
	fmt.Fprintf(a.out, "Compressing %s to %s...\n", a.dataDir, filepath.Base(a.archivePath))

	if err := os.MkdirAll(filepath.Dir(a.archivePath), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(a.archivePath), ".archive-*.tar.gz")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	bar := newBar(a.out, "Compress", total, a.showBars)
	writeErr := a.writeArchive(ctx, tmp, bar)
	closeErr := tmp.Close()
	bar.Stop()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write archive: %w", closeErr)
	}

	if err := os.Rename(tmp.Name(), a.archivePath); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	info, err := os.Stat(a.archivePath)
	if err == nil {
		a.log.Debug("archive written", "path", a.archivePath, "size", info.Size())
	}
	fmt.Fprintf(a.out, "Compressed archive (%s) in %s\n", humanize.Bytes(uint64(max(total, 0))), elapsed(start))
	return nil
}

func (a *Archive) writeArchive(ctx context.Context, w io.Writer, bar *bar) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(a.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(a.dataDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, bar.Reader(f))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", a.dataDir, err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

// Load replaces the data directory with the contents of the archive
func (a *Archive) Load(ctx context.Context) error {
	if err := a.checkPaths(); err != nil {
		return err
	}
	start := time.Now()

	f, err := os.Open(a.archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := os.RemoveAll(a.dataDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", a.dataDir, err)
	}
	if err := os.MkdirAll(a.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", a.dataDir, err)
	}

	bar := newBar(a.out, "Extract", info.Size(), a.showBars)
	err = a.extract(ctx, bar.Reader(f))
	bar.Stop()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Decompressed and copied in %s\n", elapsed(start))
	return nil
}

func (a *Archive) extract(ctx context.Context, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		target, err := safeJoin(a.dataDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(header)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, header); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if !within(a.dataDir, filepath.Join(filepath.Dir(target), header.Linkname)) || filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("refusing symlink %s -> %s outside data directory", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		default:
			a.log.Debug("skipping archive entry", "name", header.Name, "type", header.Typeflag)
		}
	}
}

// Clean empties the data directory
func (a *Archive) Clean(ctx context.Context) error {
	if a.dataDir == "" {
		return fmt.Errorf("%w: data path is not set", domain.ErrInvalidConfig)
	}
	fmt.Fprintln(a.out, "Cleaning data directory...")
	if err := os.RemoveAll(a.dataDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", a.dataDir, err)
	}
	return os.MkdirAll(a.dataDir, 0755)
}

func (a *Archive) checkPaths() error {
	if a.dataDir == "" || a.archivePath == "" {
		return fmt.Errorf("%w: data and archive paths are required", domain.ErrInvalidConfig)
	}
	return nil
}

// safeJoin joins name onto root and rejects results outside root
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("archive entry %q escapes the data directory", name)
	}
	return target, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeFile(target string, r io.Reader, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(header.Mode).Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func dirMode(header *tar.Header) fs.FileMode {
	if mode := fs.FileMode(header.Mode).Perm(); mode != 0 {
		return mode
	}
	return 0755
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func elapsed(start time.Time) string {
	return fmt.Sprintf("%.2fs", time.Since(start).Seconds())
}

// Ensure the archive implements the interface
var _ usecase.DataArchive = (*Archive)(nil)
