// Package progress reports multi-step command progress on the terminal.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while a command works through steps.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a TerminalReporter if running in an interactive terminal,
// or a LineReporter if the CI environment variable is set.
func NewReporter(description string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &LineReporter{Out: os.Stderr, Description: description}
	}
	return &TerminalReporter{description: description}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	description string
	bar         *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(r.description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		r.bar.Describe(message)
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// LineReporter prints one line per step, suitable for CI logs.
type LineReporter struct {
	Out         io.Writer
	Description string
	total       int
}

func (r *LineReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.Out, "%s: %d steps\n", r.Description, total)
}

func (r *LineReporter) Update(current int, message string) {
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, message)
}

func (r *LineReporter) Finish() {
	fmt.Fprintf(r.Out, "%s: done\n", r.Description)
}
