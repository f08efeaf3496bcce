package engine

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kondohub/kondo-scraper/internal/config"
	"github.com/kondohub/kondo-scraper/internal/detect"
)

// DefaultMinMarkers is how many builder markers a page must contain before
// a signature matches.
const DefaultMinMarkers = 3

// Signature identifies a site family from static HTML: either enough
// literal markers, or a client framework recognized by detect.
type Signature struct {
	Markers    []string
	MinMarkers int
	Frameworks []string
}

// Matches reports whether html carries the signature.
func (s *Signature) Matches(html string) bool {
	if s == nil {
		return false
	}
	if len(s.Frameworks) > 0 {
		fw := detect.MatchFramework(html)
		for _, f := range s.Frameworks {
			if fw == f {
				return true
			}
		}
	}
	if len(s.Markers) == 0 {
		return false
	}
	need := s.MinMarkers
	if need <= 0 {
		need = DefaultMinMarkers
	}
	need = min(need, len(s.Markers))
	found := 0
	for _, m := range s.Markers {
		if strings.Contains(html, m) {
			found++
			if found >= need {
				return true
			}
		}
	}
	return false
}

// Registration is a named engine and how to recognize its sites.
type Registration struct {
	Name        string
	Description string
	Engine      Engine
	URLPatterns []*regexp.Regexp
	Signature   *Signature
}

// MatchesURL reports whether any URL pattern matches url.
func (r *Registration) MatchesURL(url string) bool {
	for _, re := range r.URLPatterns {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// Registry maps engine names to registrations.
type Registry struct {
	regs  map[string]*Registration
	order []string // insertion order for deterministic matching
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[string]*Registration)}
}

// Register adds an engine. Registering a name twice is an error.
func (r *Registry) Register(reg Registration) error {
	if reg.Engine == nil {
		return eris.New("engine: registration has no engine")
	}
	if reg.Name == "" {
		reg.Name = reg.Engine.Name()
	}
	if _, dup := r.regs[reg.Name]; dup {
		return eris.Errorf("engine: %q already registered", reg.Name)
	}
	r.regs[reg.Name] = &reg
	r.order = append(r.order, reg.Name)
	return nil
}

// Get returns an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	reg, ok := r.regs[name]
	if !ok {
		return nil, eris.Errorf("engine: unknown engine %q", name)
	}
	return reg.Engine, nil
}

// Names returns engine names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns registrations in registration order.
func (r *Registry) All() []*Registration {
	out := make([]*Registration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.regs[name])
	}
	return out
}

// MatchURL returns the first registration whose URL pattern matches.
func (r *Registry) MatchURL(url string) *Registration {
	for _, name := range r.order {
		if reg := r.regs[name]; reg.MatchesURL(url) {
			return reg
		}
	}
	return nil
}

// MatchSignature returns the first registration whose signature matches html.
func (r *Registry) MatchSignature(html string) *Registration {
	for _, name := range r.order {
		if reg := r.regs[name]; reg.Signature.Matches(html) {
			return reg
		}
	}
	return nil
}

// NewDefaultRegistry registers the built-in site engines, any rule engines
// from rulesFile, and the generic fallback. Rule engines come first so a
// site-specific declaration wins over a builder signature.
func NewDefaultRegistry(f Fetcher, s Settings, rulesFile string) (*Registry, error) {
	r := NewRegistry()

	if rulesFile != "" {
		rules, err := LoadRules(rulesFile)
		if err != nil {
			return nil, err
		}
		for _, p := range rules {
			if err := r.Register(Registration{
				Name:        p.Name(),
				Description: p.Spec().Description,
				Engine:      NewSiteEngine(p, f, s),
				URLPatterns: p.URLPatterns(),
				Signature:   p.Signature(),
			}); err != nil {
				return nil, err
			}
		}
	}

	builtins := []Registration{
		{
			Description: "ZAP Imóveis and Viva Real listing pages",
			Engine:      NewSiteEngine(GrupoZapParser{}, f, s),
			URLPatterns: []*regexp.Regexp{regexp.MustCompile(GrupoZapURLPattern)},
		},
		{
			Description: "Wix site builder",
			Engine:      NewSiteEngine(WixParser{}, f, s),
			Signature:   &Signature{Markers: WixMarkers, MinMarkers: DefaultMinMarkers},
		},
		{
			Description: "WordPress themes and Elementor",
			Engine:      NewSiteEngine(WordPressParser{}, f, s),
			Signature:   &Signature{Markers: WordPressMarkers, MinMarkers: DefaultMinMarkers},
		},
		{
			Description: "Server-rendered Next.js pages",
			Engine:      NewSiteEngine(NextJSParser{}, f, s),
			Signature:   &Signature{Frameworks: []string{"nextjs"}},
		},
		{
			Description: "Best-effort extraction with static-to-rendered escalation",
			Engine:      NewGenericEngine(f, s),
		},
	}
	for _, reg := range builtins {
		if err := r.Register(reg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewFromConfig builds the default registry from configuration.
func NewFromConfig(cfg *config.Config, f Fetcher) (*Registry, error) {
	return NewDefaultRegistry(f, SettingsFromConfig(cfg), cfg.Scrape.EnginesFile)
}
