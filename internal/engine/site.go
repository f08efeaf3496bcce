package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// coverageTarget is the field count at which a site parser's result is
// considered complete.
const coverageTarget = 8

// SiteEngine runs a site-specific parser over a single fetch. Parsers that
// need JavaScript get a rendered fetch straight away.
type SiteEngine struct {
	tk     *toolkit
	parser Parser
}

// NewSiteEngine wraps p as an Engine.
func NewSiteEngine(p Parser, f Fetcher, s Settings) *SiteEngine {
	return &SiteEngine{tk: newToolkit(f, s), parser: p}
}

// Name implements Engine.
func (e *SiteEngine) Name() string { return e.parser.Name() }

// Parser returns the wrapped parser.
func (e *SiteEngine) Parser() Parser { return e.parser }

// Scrape implements Engine.
func (e *SiteEngine) Scrape(ctx context.Context, url string) (*model.ScrapedData, error) {
	render := false
	if r, ok := e.parser.(Renderer); ok {
		render = r.NeedsRendering() && e.tk.canRender()
	}

	attempt := model.ExtractionAttempt{URL: url, Method: model.MethodManual, Phases: []string{PhaseStart}}
	page, err := e.tk.fetch(ctx, url, render)
	if err != nil {
		return nil, err
	}

	manual := e.tk.manual.Extract(page.HTML)
	data, err := e.tk.process(e.Name(), page, e.parser, manual)
	if err != nil {
		return nil, err
	}

	attempt.HTMLSizeBytes = len(page.HTML)
	attempt.Source = "parser:" + e.Name()
	if manual.Success {
		attempt.RawData = manual.Data
		attempt.Source += "+" + manual.Source
	}
	if render {
		data.Platform.RenderedJS = true
		attempt.Method = model.MethodJSRendered
		attempt.Confidence = 1.0
		attempt.Phases = append(attempt.Phases, PhaseRenderedAttempted, PhaseDone)
	} else {
		coverage := float64(len(data.Fields)) / coverageTarget
		attempt.Confidence = min(1, max(manual.Confidence, coverage))
		attempt.Phases = append(attempt.Phases, PhaseManualAttempted, PhaseDone)
	}
	data.Attempt = attempt

	zap.L().Debug("engine: site parse complete",
		zap.String("engine", e.Name()),
		zap.String("url", url),
		zap.Int("fields", len(data.Fields)),
		zap.Int("medias", len(data.Medias)),
		zap.Float64("confidence", attempt.Confidence),
	)
	return data, nil
}
