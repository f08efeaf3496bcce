package engine

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/detect"
	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// GenericName is the fallback engine's name.
const GenericName = "generic"

// Phase names recorded in ExtractionAttempt.Phases.
const (
	PhaseStart             = "start"
	PhaseManualAttempted   = "manual_attempted"
	PhaseSuccess           = "success"
	PhaseEscalated         = "escalated"
	PhaseRenderedAttempted = "rendered_attempted"
	PhaseDone              = "done"
)

// attemptState is threaded through the phases of one scrape.
type attemptState struct {
	attempt  model.ExtractionAttempt
	analysis detect.Analysis
	manual   extract.Result
	data     *model.ScrapedData
}

func (s *attemptState) enter(phase string) {
	s.attempt.Phases = append(s.attempt.Phases, phase)
}

// GenericEngine extracts from any site. It first tries the static page and
// escalates to a rendered fetch only when extraction confidence is below the
// threshold and the page looks like it needs JavaScript.
type GenericEngine struct {
	tk     *toolkit
	parser Parser
}

// NewGenericEngine creates the fallback engine.
func NewGenericEngine(f Fetcher, s Settings) *GenericEngine {
	return &GenericEngine{tk: newToolkit(f, s), parser: NewGenericParser()}
}

// Name implements Engine.
func (e *GenericEngine) Name() string { return GenericName }

// Scrape implements Engine.
func (e *GenericEngine) Scrape(ctx context.Context, url string) (*model.ScrapedData, error) {
	st := &attemptState{attempt: model.ExtractionAttempt{URL: url, Method: model.MethodManual}}
	st.enter(PhaseStart)

	if err := e.manualPhase(ctx, st, url); err != nil {
		return nil, err
	}

	threshold := e.tk.settings.ManualThreshold
	switch {
	case st.attempt.Confidence >= threshold:
		st.enter(PhaseSuccess)
	case st.analysis.NeedsJSRendering && e.tk.canRender():
		st.enter(PhaseEscalated)
		zap.L().Info("engine: escalating to rendered fetch",
			zap.String("url", url),
			zap.Float64("confidence", st.attempt.Confidence),
			zap.Float64("threshold", threshold),
			zap.Strings("indicators", st.analysis.Indicators),
		)
		if err := e.renderedPhase(ctx, st, url); err != nil {
			return nil, err
		}
	case st.analysis.NeedsJSRendering:
		zap.L().Warn("engine: rendering needed but no provider can render",
			zap.String("url", url),
			zap.Float64("confidence", st.attempt.Confidence),
		)
	}
	st.enter(PhaseDone)

	st.data.Attempt = st.attempt
	return st.data, nil
}

func (e *GenericEngine) manualPhase(ctx context.Context, st *attemptState, url string) error {
	page, err := e.tk.fetch(ctx, url, false)
	if err != nil {
		return err
	}
	st.enter(PhaseManualAttempted)

	st.analysis = e.tk.detector.Analyze(page.HTML)
	st.manual = e.tk.manual.Extract(page.HTML)

	st.attempt.HTMLSizeBytes = len(page.HTML)
	st.attempt.Framework = st.analysis.Framework
	st.attempt.NeedsRender = st.analysis.NeedsJSRendering
	st.attempt.Confidence = st.manual.Confidence
	st.attempt.Source = st.manual.Source
	if st.manual.Success {
		st.attempt.RawData = st.manual.Data
	}

	data, err := e.tk.process(e.Name(), page, e.parser, st.manual)
	if err != nil {
		return err
	}
	st.data = data

	zap.L().Debug("engine: manual phase complete",
		zap.String("url", url),
		zap.Bool("extracted", st.manual.Success),
		zap.String("source", st.manual.Source),
		zap.Float64("confidence", st.manual.Confidence),
		zap.Bool("needs_js", st.analysis.NeedsJSRendering),
		zap.Int("fields", len(data.Fields)),
		zap.Int("medias", len(data.Medias)),
	)
	return nil
}

func (e *GenericEngine) renderedPhase(ctx context.Context, st *attemptState, url string) error {
	page, err := e.tk.fetch(ctx, url, true)
	if err != nil {
		return err
	}
	st.enter(PhaseRenderedAttempted)

	manual := e.tk.manual.Extract(page.HTML)
	data, err := e.tk.process(e.Name(), page, e.parser, manual)
	if err != nil {
		return err
	}
	data.Platform.RenderedJS = true
	data.Platform.Fetches = slices.Concat(st.data.Platform.Costs(), data.Platform.Costs())

	st.manual = manual
	st.data = data
	st.attempt.Method = model.MethodJSRendered
	st.attempt.Confidence = 1.0
	st.attempt.HTMLSizeBytes = len(page.HTML)
	st.attempt.Source = renderedSource(page, manual)
	st.attempt.RawData = nil
	if manual.Success {
		st.attempt.RawData = manual.Data
	}
	return nil
}

func renderedSource(page *platform.Page, manual extract.Result) string {
	src := "rendered"
	if page.Metadata.Provider != "" {
		src += ":" + page.Metadata.Provider
	}
	if manual.Success {
		src += "+" + manual.Source
	}
	return src
}
