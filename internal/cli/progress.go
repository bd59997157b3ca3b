package cli

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a terminal spinner while a slow operation runs. In quiet
// mode every method is a no-op, so callers never need to branch.
type Progress struct {
	s     *spinner.Spinner
	quiet bool
}

// NewProgress creates a progress indicator. Pass quiet=true to suppress all
// output, e.g. when stdout is piped.
func NewProgress(quiet bool) *Progress {
	return &Progress{quiet: quiet}
}

// Start begins the spinner with the given message.
func (p *Progress) Start(message string) {
	if p.quiet {
		return
	}
	p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	p.s.Suffix = " " + message
	p.s.Start()
}

// Stop clears the spinner without a final message.
func (p *Progress) Stop() {
	if p.s != nil {
		p.s.Stop()
		p.s = nil
	}
}

// Fail stops the spinner and leaves a red failure message behind.
func (p *Progress) Fail(message string) {
	if p.s != nil {
		p.s.FinalMSG = text.FgRed.Sprint(message) + "\n"
		p.s.Stop()
		p.s = nil
	}
}
