package page

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/dmorgan81/dallecli/internal/prompt"
	"github.com/dmorgan81/dallecli/internal/store"
	"github.com/samber/do"
)

//go:embed assets/index.html
var galleryTmpl string

var funcs = template.FuncMap{
	"caption": prompt.Caption,
	"number": func(name string) string {
		return strings.TrimSuffix(name, store.ImageExt)
	},
	"stamp": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}

// Params describe one result directory; image names are relative to it.
type Params struct {
	Prompt    string
	Images    []string
	Collage   string
	Generated time.Time
}

// Templator renders the gallery page written next to each prompt's images.
type Templator struct {
	tmpl *template.Template
	once sync.Once
	now  func() time.Time
}

func NewTemplator(i *do.Injector) (*Templator, error) {
	return &Templator{now: time.Now}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("gallery").Funcs(funcs).Parse(galleryTmpl))
	})
	if params.Generated.IsZero() && g.now != nil {
		params.Generated = g.now()
	}

	log := log.FromContextOrDiscard(ctx).WithGroup("templator").With("prompt", params.Prompt)
	log.Debug("rendering gallery", "images", len(params.Images), "collage", params.Collage != "")

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, fmt.Errorf("rendering gallery for %q: %w", params.Prompt, err)
	}
	return data.Bytes(), nil
}
