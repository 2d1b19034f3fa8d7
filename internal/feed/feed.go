package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const FileName = "feed.rss"

type Generator struct {
	results *store.Results
	baseURL string
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	results := do.MustInvoke[*store.Results](i)
	baseURL := do.MustInvokeNamed[string](i, "feed_url")
	return &Generator{results, baseURL}, nil
}

func (g *Generator) link(key string) string {
	if g.baseURL == "" {
		return key
	}
	return strings.TrimSuffix(g.baseURL, "/") + "/" + key
}

// Generate builds an RSS feed with one item per image and collage in the
// results tree, newest first.
func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed").With("root", g.results.Root)
	log.Info("generating rss feed")

	feed := feeds.Feed{
		Title:       "dallecli results",
		Description: "Images generated per prompt",
		Link:        &feeds.Link{Href: g.link("")},
		Updated:     time.Now(),
	}

	entries, err := os.ReadDir(g.results.Root)
	if err != nil {
		return nil, err
	}
	dirs := lo.Filter(entries, func(e os.DirEntry, _ int) bool {
		return e.IsDir()
	})

	items := make(chan *feeds.Item)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range items {
			feed.Add(i)
		}
	}()

	group, ctx := errgroup.WithContext(ctx)
	for _, dir := range dirs {
		name := dir.Name()
		group.Go(func() error {
			return g.scan(ctx, name, items)
		})
	}
	err = group.Wait()
	close(items)
	<-done
	if err != nil {
		return nil, err
	}

	log.Info("collected feed items", "count", len(feed.Items))
	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.After(b.Updated)
	})
	rss, err := feed.ToRss()
	return []byte(rss), err
}

func (g *Generator) scan(ctx context.Context, name string, items chan<- *feeds.Item) error {
	dir := filepath.Join(g.results.Root, name)
	files, err := store.Images(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, store.CollageName)); err == nil {
		files = append(files, store.CollageName)
	}

	for _, file := range files {
		info, err := os.Stat(filepath.Join(dir, file))
		if err != nil {
			return err
		}
		key := name + "/" + file
		item := &feeds.Item{
			Id:      key,
			Title:   fmt.Sprintf("%s: %s", name, strings.TrimSuffix(file, store.ImageExt)),
			Link:    &feeds.Link{Href: g.link(key)},
			Created: info.ModTime(),
			Updated: info.ModTime(),
		}
		select {
		case items <- item:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
