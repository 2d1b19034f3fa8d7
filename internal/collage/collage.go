package collage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/dmorgan81/dallecli/internal/log"
	"github.com/samber/do"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrNoImages = errors.New("collage needs at least one image")

// Layout describes the grid. Cell sizes are not part of it: they come from
// the images being assembled plus a border on every side.
type Layout struct {
	Columns int
	Rows    int
	Border  int

	// CaptionHeight is the band below the grid; CaptionTop is where the top of
	// the caption text sits inside that band.
	CaptionHeight int
	CaptionTop    int
}

// DefaultLayout turns nine 256x256 images into a 798x820 collage.
var DefaultLayout = Layout{
	Columns:       3,
	Rows:          3,
	Border:        5,
	CaptionHeight: 22,
	CaptionTop:    7,
}

func (l Layout) Cells() int {
	return l.Columns * l.Rows
}

type Assembler struct {
	Layout  Layout
	Face    font.Face
	Quality int
}

func NewAssembler(i *do.Injector) (*Assembler, error) {
	return &Assembler{Layout: DefaultLayout, Face: basicfont.Face7x13, Quality: 95}, nil
}

// Cell returns the size of one grid cell for the given images.
func (a *Assembler) Cell(images []image.Image) image.Point {
	var size image.Point
	for _, img := range images {
		b := img.Bounds()
		size.X = max(size.X, b.Dx())
		size.Y = max(size.Y, b.Dy())
	}
	return size.Add(image.Pt(2*a.Layout.Border, 2*a.Layout.Border))
}

// Assemble lays images out row-major on a black canvas and draws the caption
// under the grid. Cells without an image stay black.
func (a *Assembler) Assemble(caption string, images []image.Image) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if len(images) > a.Layout.Cells() {
		return nil, fmt.Errorf("collage holds %d images, got %d", a.Layout.Cells(), len(images))
	}

	cell := a.Cell(images)
	grid := image.Pt(a.Layout.Columns*cell.X, a.Layout.Rows*cell.Y)
	canvas := imaging.New(grid.X, grid.Y+a.Layout.CaptionHeight, color.Black)

	for i, img := range images {
		pos := image.Pt((i%a.Layout.Columns)*cell.X, (i/a.Layout.Columns)*cell.Y)
		canvas = imaging.Paste(canvas, a.frame(img), pos)
	}

	a.drawCaption(canvas, caption, grid.Y+a.Layout.CaptionTop)
	return canvas, nil
}

func (a *Assembler) frame(img image.Image) *image.NRGBA {
	b := img.Bounds()
	border := a.Layout.Border
	framed := imaging.New(b.Dx()+2*border, b.Dy()+2*border, color.Black)
	return imaging.Paste(framed, img, image.Pt(border, border))
}

// drawCaption centers the whole caption horizontally; top is the y of the
// top of the text.
func (a *Assembler) drawCaption(dst *image.NRGBA, caption string, top int) {
	if caption == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: a.Face,
	}
	width := d.MeasureString(caption).Ceil()
	x := max((dst.Bounds().Dx()-width)/2, 0)
	d.Dot = fixed.P(x, top+a.Face.Metrics().Ascent.Ceil())
	d.DrawString(caption)
}

// Build decodes the images at paths, assembles them and writes the result to
// dst as JPEG.
func (a *Assembler) Build(ctx context.Context, caption string, paths []string, dst string) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("collage").With("dst", dst)
	log.Info("assembling collage", "images", len(paths))

	images := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		images = append(images, img)
	}

	canvas, err := a.Assemble(caption, images)
	if err != nil {
		return err
	}
	if err := imaging.Save(canvas, dst, imaging.JPEGQuality(a.Quality)); err != nil {
		return fmt.Errorf("writing collage: %w", err)
	}

	log.Info("wrote collage", "width", canvas.Bounds().Dx(), "height", canvas.Bounds().Dy())
	return nil
}
