package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
)

// maxErrorBody bounds how much of a failed response ends up in a StatusError.
const maxErrorBody = 512

type BackendGenerator struct {
	Client *http.Client
	URL    string
}

func NewBackendGenerator(i *do.Injector) (Generator, error) {
	return &BackendGenerator{
		Client: do.MustInvoke[*http.Client](i),
		URL:    do.MustInvokeNamed[string](i, "backend_url"),
	}, nil
}

func (g *BackendGenerator) Generate(ctx context.Context, params Params) ([]byte, error) {
	if params.NumImages < 1 {
		params.NumImages = 1
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("backend").With("url", g.URL, "text", params.Text)
	log.Info("requesting image")

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn("backend returned error status", "status", resp.StatusCode)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var payloads []string
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(payloads) == 0 {
		return nil, ErrEmptyResponse
	}

	data, err := base64.StdEncoding.DecodeString(payloads[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	log.Info("received image", "bytes", len(data), "returned", len(payloads))
	return data, nil
}
