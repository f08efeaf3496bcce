package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/platform"
)

// How an engine was chosen.
const (
	ReasonForced    = "forced"
	ReasonURL       = "url_pattern"
	ReasonSignature = "signature"
	ReasonFallback  = "fallback"
)

// Selection is the engine picked for a URL.
type Selection struct {
	Engine Engine
	Reason string
}

// Selector picks an engine for a URL: a forced name wins, then URL
// patterns, then signatures found in a static fetch, then the generic
// engine.
type Selector struct {
	registry *Registry
	fetcher  Fetcher
}

// NewSelector creates a Selector. fetcher is used for the signature probe
// and may be nil to skip it.
func NewSelector(r *Registry, fetcher Fetcher) *Selector {
	return &Selector{registry: r, fetcher: fetcher}
}

// Select returns the engine for url. Only an unknown forced name is an
// error; a failed signature probe falls through to the generic engine.
func (s *Selector) Select(ctx context.Context, url, force string) (Selection, error) {
	if force != "" {
		e, err := s.registry.Get(force)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Engine: e, Reason: ReasonForced}, nil
	}

	if reg := s.registry.MatchURL(url); reg != nil {
		return Selection{Engine: reg.Engine, Reason: ReasonURL}, nil
	}

	if s.fetcher != nil {
		page, err := s.fetcher.FetchHTML(ctx, url, platform.Options{})
		switch {
		case err != nil:
			zap.L().Debug("engine: signature probe failed, using generic",
				zap.String("url", url),
				zap.Error(err),
			)
		case page != nil:
			if reg := s.registry.MatchSignature(page.HTML); reg != nil {
				return Selection{Engine: reg.Engine, Reason: ReasonSignature}, nil
			}
		}
	}

	e, err := s.registry.Get(GenericName)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Engine: e, Reason: ReasonFallback}, nil
}
