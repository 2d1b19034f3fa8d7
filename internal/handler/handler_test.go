package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	goimage "image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/dmorgan81/dallecli/internal/image"
	"github.com/dmorgan81/dallecli/internal/progress"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{255, 0, 0, 255}

func TestFetch(t *testing.T) {
	want := []byte{0xff, 0xd8, 0xff}
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return want, nil })

	path, err := f.handler.Fetch(context.Background(), "A Cat")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.root, "a_cat", "0.jpg"), path)
	assert.Equal(t, []image.Params{{Text: "A Cat", NumImages: 1}}, f.generator.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, data)
}

func TestFetchBackendError(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) {
		return nil, &image.StatusError{StatusCode: 500}
	})

	_, err := f.handler.Fetch(context.Background(), "cats")
	assert.True(t, image.IsBackendError(err))
	assert.NoFileExists(t, filepath.Join(f.root, "cats", "0.jpg"))
}

func TestFetchVerbose(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })
	f.handler.verbose = true

	path, err := f.handler.Fetch(context.Background(), "cats")
	require.NoError(t, err)
	assert.Contains(t, f.out.String(), `Sent request for prompt "cats"!`)
	assert.Contains(t, f.out.String(), `Got response for prompt "cats" in `)
	assert.Contains(t, f.out.String(), "Wrote image to "+path+"!")
}

func TestOneshotAgainstBackend(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(solidJPEG(t, red))
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode([]string{payload})
	}))
	defer srv.Close()

	f := newFixture(t, nil)
	f.handler.generator = &image.BackendGenerator{Client: srv.Client(), URL: srv.URL}

	paths, err := f.handler.Oneshot(context.Background(), []string{"cats"}, 2)
	require.NoError(t, err)

	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, []string{
		filepath.Join(f.root, "cats", "0.jpg"),
		filepath.Join(f.root, "cats", "1.jpg"),
	}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestOneshot(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })

	paths, err := f.handler.Oneshot(context.Background(), []string{"cats", "A Dog"}, 2)
	require.NoError(t, err)

	assert.Len(t, f.generator.calls, 4)
	assert.Equal(t, "cats", f.generator.calls[1].Text)
	assert.Equal(t, "A Dog", f.generator.calls[2].Text)
	assert.Equal(t, []string{
		filepath.Join(f.root, "cats", "0.jpg"),
		filepath.Join(f.root, "cats", "1.jpg"),
		filepath.Join(f.root, "a_dog", "0.jpg"),
		filepath.Join(f.root, "a_dog", "1.jpg"),
	}, paths)
	assert.FileExists(t, filepath.Join(f.root, "cats", "index.html"))

	sort.Strings(f.uploader.names)
	assert.Equal(t, []string{
		"a_dog/0.jpg", "a_dog/1.jpg", "a_dog/index.html",
		"cats/0.jpg", "cats/1.jpg", "cats/index.html",
	}, f.uploader.names)
	assert.Equal(t, []string{"/cats/index.html", "/a_dog/index.html"}, f.invalidator.paths)
}

func TestOneshotAppends(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })

	_, err := f.handler.Oneshot(context.Background(), []string{"cats"}, 1)
	require.NoError(t, err)
	paths, err := f.handler.Oneshot(context.Background(), []string{"Cats"}, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(f.root, "cats", "1.jpg")}, paths)
}

func TestOneshotStopsOnError(t *testing.T) {
	f := newFixture(t, func(call int, _ image.Params) ([]byte, error) {
		if call == 2 {
			return nil, &image.StatusError{StatusCode: 502}
		}
		return []byte("x"), nil
	})

	paths, err := f.handler.Oneshot(context.Background(), []string{"cats", "dogs"}, 3)

	var status *image.StatusError
	require.ErrorAs(t, err, &status)
	assert.Len(t, f.generator.calls, 2)
	assert.Equal(t, []string{filepath.Join(f.root, "cats", "0.jpg")}, paths)
	assert.NoDirExists(t, filepath.Join(f.root, "dogs"))
	assert.Empty(t, f.invalidator.paths)
}

func TestOneshotInvalidCount(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.handler.Oneshot(context.Background(), []string{"cats"}, 0)
	assert.Error(t, err)
}

func TestCollage(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return solidJPEG(t, red), nil })

	collages, err := f.handler.Collage(context.Background(), []string{"cats"})
	require.NoError(t, err)

	assert.Len(t, f.generator.calls, 9)
	dst := filepath.Join(f.root, "cats", "collage.jpg")
	assert.Equal(t, []string{dst}, collages)

	img, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, goimage.Pt(798, 820), img.Bounds().Size())

	page, err := os.ReadFile(filepath.Join(f.root, "cats", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `src="collage.jpg"`)
	assert.Contains(t, f.uploader.names, "cats/collage.jpg")
	assert.Equal(t, []string{"/cats/collage.jpg", "/cats/index.html"}, f.invalidator.paths)
}

func TestCollageSkipsBackendFailures(t *testing.T) {
	f := newFixture(t, func(call int, _ image.Params) ([]byte, error) {
		if call > 3 {
			return nil, &image.StatusError{StatusCode: 503}
		}
		return solidJPEG(t, red), nil
	})

	collages, err := f.handler.Collage(context.Background(), []string{"cats"})
	require.NoError(t, err)
	require.Len(t, collages, 1)
	assert.Len(t, f.generator.calls, 9)

	img, err := imaging.Open(collages[0])
	require.NoError(t, err)
	assert.Equal(t, goimage.Pt(798, 820), img.Bounds().Size())

	r, _, _, _ := img.At(133, 133).RGBA()
	assert.Greater(t, r>>8, uint32(200), "cell 0 holds an image")
	r, g, b, _ := img.At(133, 133+266).RGBA()
	assert.Less(t, (r+g+b)>>8, uint32(48), "cell 3 stays black")
}

func TestCollageNoImages(t *testing.T) {
	f := newFixture(t, func(_ int, params image.Params) ([]byte, error) {
		if params.Text == "cats" {
			return nil, image.ErrEmptyResponse
		}
		return solidJPEG(t, red), nil
	})

	collages, err := f.handler.Collage(context.Background(), []string{"cats", "dogs"})
	assert.ErrorIs(t, err, ErrNoImages)
	assert.Equal(t, []string{filepath.Join(f.root, "dogs", "collage.jpg")}, collages)
	assert.NoFileExists(t, filepath.Join(f.root, "cats", "collage.jpg"))
	assert.Len(t, f.generator.calls, 18)
}

func TestCollageTransportErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	f := newFixture(t, func(call int, _ image.Params) ([]byte, error) {
		if call == 4 {
			return nil, boom
		}
		return solidJPEG(t, red), nil
	})

	_, err := f.handler.Collage(context.Background(), []string{"cats"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.generator.calls, 4)
	assert.NoFileExists(t, filepath.Join(f.root, "cats", "collage.jpg"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "cats", describe(0, 1, "cats"))
	assert.Equal(t, "All [2/3] cats", describe(1, 3, "cats"))
}

func TestOneshotPromptOutsideRootWithoutMirroring(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })
	base := f.root
	f.handler.results = &store.Results{Root: filepath.Join(base, "results")}
	f.handler.uploader = store.NopUploader{}

	paths, err := f.handler.Oneshot(context.Background(), []string{"..", "cats"}, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(base, "0.jpg"),
		filepath.Join(base, "results", "cats", "0.jpg"),
	}, paths)
	assert.FileExists(t, filepath.Join(base, "results", "cats", "0.jpg"))
	assert.Empty(t, f.invalidator.paths)
}

func TestOneshotPromptOutsideRootWithMirroring(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })
	base := f.root
	f.handler.results = &store.Results{Root: filepath.Join(base, "results")}

	_, err := f.handler.Oneshot(context.Background(), []string{"..", "cats"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is outside")
	assert.Empty(t, f.uploader.names)
}

func TestOneshotBatchBar(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })
	f.handler.reporter = progress.NewReporter(f.out, false)

	_, err := f.handler.Oneshot(context.Background(), []string{"cats", "dogs"}, 2)
	require.NoError(t, err)

	out := f.out.String()
	assert.Contains(t, out, "All [1/2] cats")
	assert.Contains(t, out, "All [2/2] dogs")
	assert.Contains(t, out, "4/4")
}

func TestOneshotNoPrompts(t *testing.T) {
	f := newFixture(t, func(int, image.Params) ([]byte, error) { return []byte("x"), nil })

	paths, err := f.handler.Oneshot(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Empty(t, f.generator.calls)
}
