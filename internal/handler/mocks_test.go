package handler

import (
	"bytes"
	"context"
	"image/color"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/dmorgan81/dallecli/internal/collage"
	"github.com/dmorgan81/dallecli/internal/image"
	"github.com/dmorgan81/dallecli/internal/page"
	"github.com/dmorgan81/dallecli/internal/progress"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

type fakeGenerator struct {
	mu           sync.Mutex
	calls        []image.Params
	generateFunc func(call int, params image.Params) ([]byte, error)
}

func (g *fakeGenerator) Generate(_ context.Context, params image.Params) ([]byte, error) {
	g.mu.Lock()
	g.calls = append(g.calls, params)
	call := len(g.calls)
	g.mu.Unlock()
	return g.generateFunc(call, params)
}

type recordingUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *recordingUploader) Upload(_ context.Context, params store.UploadParams) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, params.Name)
	return nil
}

type recordingInvalidator struct {
	paths []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, paths []string) error {
	i.paths = append(i.paths, paths...)
	return nil
}

func solidJPEG(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(256, 256, c), imaging.JPEG))
	return buf.Bytes()
}

type fixture struct {
	handler     *Handler
	generator   *fakeGenerator
	uploader    *recordingUploader
	invalidator *recordingInvalidator
	out         *bytes.Buffer
	root        string
}

func newFixture(t *testing.T, generate func(call int, params image.Params) ([]byte, error)) *fixture {
	t.Helper()
	f := &fixture{
		generator:   &fakeGenerator{generateFunc: generate},
		uploader:    &recordingUploader{},
		invalidator: &recordingInvalidator{},
		out:         &bytes.Buffer{},
		root:        t.TempDir(),
	}
	f.handler = &Handler{
		generator:   f.generator,
		results:     &store.Results{Root: f.root},
		assembler:   &collage.Assembler{Layout: collage.DefaultLayout, Face: basicfont.Face7x13, Quality: 95},
		templator:   &page.Templator{},
		uploader:    f.uploader,
		invalidator: f.invalidator,
		reporter:    progress.NewReporter(f.out, true),
		backendURL:  "http://backend/dalle",
		concurrency: 2,
	}
	return f
}
