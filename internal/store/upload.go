package store

import (
	"context"

	"github.com/dmorgan81/dallecli/internal/log"
	"golang.org/x/sync/errgroup"
)

// UploadParams describes one result file to mirror. Mutable marks keys that a
// later run overwrites (collages and gallery pages); numbered images never
// change once written.
type UploadParams struct {
	Name         string
	Data         []byte
	ContentType  string
	CacheControl string
	Mutable      bool
	Metadata     map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

type NopUploader struct{}

func (NopUploader) Upload(context.Context, UploadParams) error { return nil }

// Publish uploads every item, at most limit at a time, and returns the first
// error encountered.
func Publish(ctx context.Context, u Uploader, limit int, uploads []UploadParams) error {
	log.FromContextOrDiscard(ctx).WithGroup("publish").Info("publishing", "count", len(uploads))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(limit, 1))
	for _, params := range uploads {
		params := params
		group.Go(func() error {
			return u.Upload(ctx, params)
		})
	}
	return group.Wait()
}
