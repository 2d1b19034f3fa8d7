package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

type Bar interface {
	Add(int) error
	Describe(string)
	Finish() error
}

type nopBar struct{}

func (nopBar) Add(int) error   { return nil }
func (nopBar) Describe(string) {}
func (nopBar) Finish() error   { return nil }

// Reporter owns the console output of a run: progress bars and the
// messages printed in verbose mode.
type Reporter struct {
	out   io.Writer
	quiet bool
	bar   *progressbar.ProgressBar
}

func NewReporter(out io.Writer, quiet bool) *Reporter {
	return &Reporter{out: out, quiet: quiet}
}

// Start returns a bar counting to total. Starting a bar replaces the
// previous one.
func (r *Reporter) Start(total int, description string) Bar {
	if r.quiet {
		return nopBar{}
	}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.out)
		}),
	)
	return r.bar
}

// Printf writes a line above the active bar.
func (r *Reporter) Printf(format string, args ...any) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Announcef is Printf that is silenced in quiet mode.
func (r *Reporter) Announcef(format string, args ...any) {
	if r.quiet {
		return
	}
	r.Printf(format, args...)
}
