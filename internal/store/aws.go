package store

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

// MaxInvalidationPaths is the number of paths CloudFront accepts in one
// invalidation batch.
const MaxInvalidationPaths = 3000

// S3Uploader mirrors result files into a bucket under the same relative keys
// they have below the results root.
type S3Uploader struct {
	Client *s3.Client
	Bucket string
}

func NewS3Uploader(i *do.Injector) (Uploader, error) {
	return &S3Uploader{
		Client: do.MustInvoke[*s3.Client](i),
		Bucket: do.MustInvokeNamed[string](i, "bucket"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("s3").With("key", params.Name, "bucket", u.Bucket)
	log.Debug("putting object", "content-type", params.ContentType, "size", len(params.Data))

	input := &s3.PutObjectInput{
		Bucket:       aws.String(u.Bucket),
		Key:          aws.String(params.Name),
		ContentType:  aws.String(params.ContentType),
		Body:         bytes.NewReader(params.Data),
		Metadata:     params.Metadata,
		StorageClass: lo.Ternary(params.Mutable, s3types.StorageClassStandard, s3types.StorageClassIntelligentTiering),
	}
	if params.CacheControl != "" {
		input.CacheControl = aws.String(params.CacheControl)
	}
	if _, err := u.Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", u.Bucket, params.Name, err)
	}
	return nil
}

// CloudFrontInvalidator drops cached copies of overwritten keys from a
// distribution.
type CloudFrontInvalidator struct {
	Client       *cloudfront.Client
	Distribution string
}

func NewCloudFrontInvalidator(i *do.Injector) (Invalidator, error) {
	return &CloudFrontInvalidator{
		Client:       do.MustInvoke[*cloudfront.Client](i),
		Distribution: do.MustInvokeNamed[string](i, "distribution"),
	}, nil
}

func (i *CloudFrontInvalidator) Invalidate(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("cloudfront").With("distribution", i.Distribution)

	ref := time.Now().UTC().Format("20060102150405.000")
	for n, batch := range lo.Chunk(paths, MaxInvalidationPaths) {
		log.Info("invalidating paths", "count", len(batch), "batch", n)
		out, err := i.Client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
			DistributionId: aws.String(i.Distribution),
			InvalidationBatch: &cftypes.InvalidationBatch{
				CallerReference: aws.String(fmt.Sprintf("%s-%d", ref, n)),
				Paths: &cftypes.Paths{
					Quantity: aws.Int32(int32(len(batch))),
					Items:    batch,
				},
			},
		})
		if err != nil {
			return fmt.Errorf("invalidating %s: %w", i.Distribution, err)
		}
		if out.Invalidation != nil {
			log.Debug("invalidation created", "id", aws.ToString(out.Invalidation.Id))
		}
	}
	return nil
}
