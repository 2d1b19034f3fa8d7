package handler

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmorgan81/dallecli/internal/collage"
	"github.com/dmorgan81/dallecli/internal/image"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/page"
	"github.com/dmorgan81/dallecli/internal/progress"
	"github.com/dmorgan81/dallecli/internal/prompt"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/samber/do"
	"github.com/samber/lo"
)

var ErrNoImages = errors.New("no images generated")

type Handler struct {
	generator   image.Generator
	results     *store.Results
	assembler   *collage.Assembler
	templator   *page.Templator
	uploader    store.Uploader
	invalidator store.Invalidator
	reporter    *progress.Reporter

	backendURL  string
	concurrency int
	verbose     bool
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		generator:   do.MustInvoke[image.Generator](i),
		results:     do.MustInvoke[*store.Results](i),
		assembler:   do.MustInvoke[*collage.Assembler](i),
		templator:   do.MustInvoke[*page.Templator](i),
		uploader:    do.MustInvoke[store.Uploader](i),
		invalidator: do.MustInvoke[store.Invalidator](i),
		reporter:    do.MustInvoke[*progress.Reporter](i),
		backendURL:  do.MustInvokeNamed[string](i, "backend_url"),
		concurrency: do.MustInvokeNamed[int](i, "upload_concurrency"),
		verbose:     do.MustInvokeNamed[bool](i, "verbose"),
	}, nil
}

// Fetch asks the backend for one image of p and stores it under the next free
// index of p's result directory.
func (h *Handler) Fetch(ctx context.Context, p string) (string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("fetch").With("prompt", p)

	if h.verbose {
		h.reporter.Printf("Sent request for prompt %q!", p)
	}
	start := time.Now()
	data, err := h.generator.Generate(ctx, image.Params{Text: p, NumImages: 1})
	if err != nil {
		log.Warn("generating image failed", "error", err)
		return "", fmt.Errorf("generating %q: %w", p, err)
	}
	if h.verbose {
		h.reporter.Printf("Got response for prompt %q in %.3fs!", p, time.Since(start).Seconds())
	}

	path, err := h.results.Save(ctx, p, data)
	if err != nil {
		return "", err
	}
	if h.verbose {
		h.reporter.Printf("Wrote image to %s!", path)
	}
	return path, nil
}

// Oneshot fetches n images for every prompt, one request at a time. The first
// error stops the batch; files already written stay on disk. Several prompts
// share one bar counting the whole batch.
func (h *Handler) Oneshot(ctx context.Context, prompts []string, n int) ([]string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("oneshot").With("prompts", prompts, "n", n)
	log.Info("generating images")

	if n < 1 {
		return nil, fmt.Errorf("image count must be positive, got %d", n)
	}
	if len(prompts) == 0 {
		return nil, nil
	}
	h.reporter.Announcef("Generating: %s, %d times each, on %s.", strings.Join(prompts, ", "), n, h.backendURL)

	var (
		paths []string
		keys  []string
	)
	bar := h.reporter.Start(len(prompts)*n, "All")
	for idx, p := range prompts {
		bar.Describe(describe(idx, len(prompts), p))
		var written []string
		for j := 0; j < n; j++ {
			path, err := h.Fetch(ctx, p)
			if err != nil {
				return paths, err
			}
			written = append(written, path)
			paths = append(paths, path)
			_ = bar.Add(1)
		}

		published, err := h.finish(ctx, p, written)
		if err != nil {
			return paths, err
		}
		keys = append(keys, published...)
	}
	_ = bar.Finish()

	return paths, h.invalidate(ctx, keys)
}

// Collage fetches a full grid of images per prompt and assembles them. Images
// the backend fails to deliver leave their cell empty; a prompt without a
// single image is reported once every prompt has been tried.
func (h *Handler) Collage(ctx context.Context, prompts []string) ([]string, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("collage").With("prompts", prompts)
	log.Info("generating collages")

	if len(prompts) == 0 {
		return nil, nil
	}
	cells := h.assembler.Layout.Cells()
	h.reporter.Announcef("Generating collages of %d images: %s.", cells, strings.Join(prompts, ", "))

	var (
		collages []string
		keys     []string
		failed   []error
	)
	bar := h.reporter.Start(len(prompts)*cells, "All")
	for idx, p := range prompts {
		bar.Describe(describe(idx, len(prompts), p))
		var images []string
		for j := 0; j < cells; j++ {
			path, err := h.Fetch(ctx, p)
			_ = bar.Add(1)
			if image.IsBackendError(err) {
				h.reporter.Printf("Skipping image %d of %q: %v", j+1, p, err)
				continue
			}
			if err != nil {
				return collages, err
			}
			images = append(images, path)
		}

		if len(images) == 0 {
			log.Warn("no images for collage", "prompt", p)
			failed = append(failed, fmt.Errorf("%q: %w", p, ErrNoImages))
			continue
		}

		dst, err := h.results.CollagePath(p)
		if err != nil {
			return collages, err
		}
		if err := h.assembler.Build(ctx, prompt.Caption(p), images, dst); err != nil {
			return collages, err
		}
		collages = append(collages, dst)
		if h.verbose {
			h.reporter.Printf("Wrote collage to %s!", dst)
		}

		published, err := h.finish(ctx, p, append(images, dst))
		if err != nil {
			return collages, err
		}
		keys = append(keys, published...)
	}
	_ = bar.Finish()

	if err := h.invalidate(ctx, keys); err != nil {
		return collages, err
	}
	return collages, errors.Join(failed...)
}

// finish renders the prompt's gallery page and mirrors the files written for
// it, returning the keys of the mirrored files that replaced an earlier copy.
// Without mirroring the files are never mapped to keys, so prompts whose
// directory lies outside the results root still succeed.
func (h *Handler) finish(ctx context.Context, p string, written []string) ([]string, error) {
	dir := h.results.Dir(p)
	names, err := store.Images(dir)
	if err != nil {
		return nil, err
	}
	params := page.Params{Prompt: p, Images: names}
	if _, err := os.Stat(filepath.Join(dir, store.CollageName)); err == nil {
		params.Collage = store.CollageName
	}

	html, err := h.templator.Template(ctx, params)
	if err != nil {
		return nil, err
	}
	pagePath, err := h.results.PagePath(p)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(pagePath, html, 0o644); err != nil {
		return nil, fmt.Errorf("writing page: %w", err)
	}
	if _, ok := h.uploader.(store.NopUploader); ok {
		return nil, nil
	}

	uploads := make([]store.UploadParams, 0, len(written)+1)
	for _, path := range append(written, pagePath) {
		key, err := h.results.Key(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		mutable := isMutable(path)
		uploads = append(uploads, store.UploadParams{
			Name:         key,
			Data:         data,
			ContentType:  contentType(path),
			CacheControl: lo.Ternary(mutable, "no-cache", "public, max-age=31536000, immutable"),
			Mutable:      mutable,
			Metadata:     map[string]string{"prompt": p},
		})
	}
	if err := store.Publish(ctx, h.uploader, h.concurrency, uploads); err != nil {
		return nil, fmt.Errorf("publishing %q: %w", p, err)
	}
	return lo.FilterMap(uploads, func(u store.UploadParams, _ int) (string, bool) {
		return u.Name, u.Mutable
	}), nil
}

func (h *Handler) invalidate(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	paths := lo.Uniq(lo.Map(keys, func(k string, _ int) string {
		return "/" + k
	}))
	return h.invalidator.Invalidate(ctx, paths)
}

func describe(idx, total int, p string) string {
	return lo.Ternary(total > 1, fmt.Sprintf("All [%d/%d] %s", idx+1, total, p), p)
}

func isMutable(path string) bool {
	name := filepath.Base(path)
	return name == store.CollageName || name == store.PageName
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
