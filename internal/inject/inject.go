package inject

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/dallecli/internal/collage"
	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/feed"
	"github.com/dmorgan81/dallecli/internal/handler"
	"github.com/dmorgan81/dallecli/internal/image"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/page"
	"github.com/dmorgan81/dallecli/internal/param"
	"github.com/dmorgan81/dallecli/internal/progress"
	"github.com/dmorgan81/dallecli/internal/prompt"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/samber/do"
)

// Setup registers every component. Nothing is constructed until invoked, so
// AWS clients are only created when mirroring or the prompt list is used.
func Setup(ctx context.Context, cfg *config.Config, out io.Writer) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{Timeout: cfg.HTTPTimeout})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.Provide[*prompt.Randomizer](injector, prompt.NewRandomizer)
	do.Provide[image.Generator](injector, image.NewBackendGenerator)
	do.Provide[*store.Results](injector, store.NewResults)
	do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
		if cfg.Bucket == "" {
			return store.NopUploader{}, nil
		}
		return store.NewS3Uploader(i)
	})
	do.Provide[store.Invalidator](injector, func(i *do.Injector) (store.Invalidator, error) {
		if cfg.Distribution == "" {
			return store.NopInvalidator{}, nil
		}
		return store.NewCloudFrontInvalidator(i)
	})
	do.Provide[*collage.Assembler](injector, collage.NewAssembler)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*progress.Reporter](injector, func(i *do.Injector) (*progress.Reporter, error) {
		return progress.NewReporter(out, cfg.Quiet), nil
	})

	do.ProvideNamed[[]string](injector, "prompts", func(i *do.Injector) ([]string, error) {
		if cfg.PromptsParam == "" {
			return nil, nil
		}
		return do.MustInvoke[param.Fetcher](i).FetchAll(ctx, cfg.PromptsParam)
	})
	do.ProvideNamed[string](injector, "backend_url", func(i *do.Injector) (string, error) {
		if cfg.BackendURLParam == "" {
			return cfg.BackendURL, nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.BackendURLParam)
	})
	do.ProvideNamedValue[string](injector, "results_dir", cfg.ResultsDir)
	do.ProvideNamedValue[string](injector, "bucket", cfg.Bucket)
	do.ProvideNamedValue[string](injector, "distribution", cfg.Distribution)
	do.ProvideNamedValue[string](injector, "feed_url", cfg.FeedURL)
	do.ProvideNamedValue[int](injector, "upload_concurrency", cfg.UploadConcurrency)
	do.ProvideNamedValue[bool](injector, "verbose", cfg.Verbose)

	do.Provide[*handler.Handler](injector, handler.NewHandler)
	do.Provide[*handler.LambdaHandler](injector, handler.NewLambdaHandler)

	return injector
}
