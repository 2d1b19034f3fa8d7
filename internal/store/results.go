package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/prompt"
	"github.com/samber/do"
)

const (
	ImageExt    = ".jpg"
	CollageName = "collage" + ImageExt
	PageName    = "index.html"
)

// Results is the on-disk tree of generated images, one directory per
// normalized prompt.
type Results struct {
	Root string
}

func NewResults(i *do.Injector) (*Results, error) {
	return &Results{Root: do.MustInvokeNamed[string](i, "results_dir")}, nil
}

func (r *Results) Dir(p string) string {
	return filepath.Join(r.Root, prompt.Normalize(p))
}

func (r *Results) mkdir(p string) (string, error) {
	dir := r.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}
	return dir, nil
}

// Path returns the first <n>.jpg in the prompt's directory that does not exist
// yet. Nothing is reserved; use Create when callers may race.
func (r *Results) Path(p string) (string, error) {
	dir, err := r.mkdir(p)
	if err != nil {
		return "", err
	}
	for i := 0; ; i++ {
		path := filepath.Join(dir, strconv.Itoa(i)+ImageExt)
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Create allocates the next free path and opens it exclusively, moving on to
// the next index if another writer claimed it first.
func (r *Results) Create(p string) (*os.File, string, error) {
	for {
		path, err := r.Path(p)
		if err != nil {
			return nil, "", err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
}

func (r *Results) Save(ctx context.Context, p string, data []byte) (string, error) {
	f, path, err := r.Create(p)
	if err != nil {
		return "", err
	}
	log.FromContextOrDiscard(ctx).WithGroup("results").Info("writing image", "path", path, "bytes", len(data))

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func (r *Results) CollagePath(p string) (string, error) {
	dir, err := r.mkdir(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CollageName), nil
}

func (r *Results) PagePath(p string) (string, error) {
	dir, err := r.mkdir(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PageName), nil
}

// Key is the slash separated path of a file relative to the results root, used
// as object key when mirroring.
func (r *Results) Key(path string) (string, error) {
	rel, err := filepath.Rel(r.Root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, r.Root)
	}
	return filepath.ToSlash(rel), nil
}

// Images lists the numbered images in a result directory in index order.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type indexed struct {
		n    int
		name string
	}
	var found []indexed
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ImageExt) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ImageExt))
		if err != nil || n < 0 || strconv.Itoa(n)+ImageExt != name {
			continue
		}
		found = append(found, indexed{n, name})
	}
	slices.SortFunc(found, func(a, b indexed) int { return a.n - b.n })

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.name
	}
	return names, nil
}
