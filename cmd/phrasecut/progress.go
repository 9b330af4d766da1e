package main

import (
	"io"

	"phrasecut/internal/appcore"

	"github.com/schollz/progressbar/v3"
)

// progressObserver advances a progress bar as clips finish.
type progressObserver struct {
	appcore.NopObserver
	bar *progressbar.ProgressBar
}

// newProgressObserver starts an open-ended bar; call setTotal once the run
// is planned.
func newProgressObserver(out io.Writer) *progressObserver {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("cutting clips"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(isTerminal(out)),
		progressbar.OptionClearOnFinish(),
	)
	return &progressObserver{bar: bar}
}

func (p *progressObserver) setTotal(total int) {
	p.bar.ChangeMax(total)
}

func (p *progressObserver) OnClipTaskComplete(appcore.ClipEvent) {
	_ = p.bar.Add(1)
}

func (p *progressObserver) finish() {
	_ = p.bar.Finish()
}
