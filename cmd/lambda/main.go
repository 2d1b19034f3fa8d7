package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/dallecli/internal/config"
	"github.com/dmorgan81/dallecli/internal/handler"
	"github.com/dmorgan81/dallecli/internal/inject"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
)

func main() {
	cfg := config.Load()
	cfg.Quiet = true
	if os.Getenv("RESULTS_DIR") == "" {
		cfg.ResultsDir = "/tmp/results"
	}

	ctx := log.NewContext(context.Background(), log.New(os.Stderr, log.ParseLevel(cfg.LogLevel)))
	injector := inject.Setup(ctx, cfg, os.Stderr)
	handler := do.MustInvoke[*handler.LambdaHandler](injector)
	lambda.StartWithOptions(handler.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
		_ = injector.Shutdown()
	}))
}
