package engine

import (
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// RuleFile is the top-level engines file.
type RuleFile struct {
	Engines []RuleSpec `yaml:"engines"`
}

// RuleSpec declares a selector-driven engine.
type RuleSpec struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	URLPatterns []string             `yaml:"url_patterns"`
	Signature   SignatureSpec        `yaml:"signature"`
	Render      bool                 `yaml:"render"`
	Common      *bool                `yaml:"common,omitempty"` // default true
	Fields      map[string]FieldRule `yaml:"fields"`
	Media       []string             `yaml:"media"`
}

// SignatureSpec is the YAML form of Signature.
type SignatureSpec struct {
	Markers    []string `yaml:"markers"`
	MinMarkers int      `yaml:"min_markers"`
}

// FieldRule extracts one listing column.
type FieldRule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
	// Regex keeps its first capture group (or the whole match).
	Regex string `yaml:"regex"`
	// Exists yields true when the selector matches anything.
	Exists bool `yaml:"exists"`
}

type compiledField struct {
	field string
	rule  FieldRule
	re    *regexp.Regexp
}

// RuleParser is a Parser built from a RuleSpec.
type RuleParser struct {
	spec     RuleSpec
	fields   []compiledField
	patterns []*regexp.Regexp
}

// LoadRules reads and compiles an engines file.
func LoadRules(path string) ([]*RuleParser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read rules %s", path)
	}
	return ParseRules(data)
}

// ParseRules compiles engines from YAML.
func ParseRules(data []byte) ([]*RuleParser, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "engine: parse rules")
	}

	seen := make(map[string]bool)
	out := make([]*RuleParser, 0, len(file.Engines))
	for i, spec := range file.Engines {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, eris.Errorf("engine: rules[%d]: name is required", i)
		}
		if seen[spec.Name] {
			return nil, eris.Errorf("engine: rules[%d]: duplicate engine %q", i, spec.Name)
		}
		seen[spec.Name] = true

		p, err := compileRule(spec)
		if err != nil {
			return nil, eris.Wrapf(err, "engine: rules %q", spec.Name)
		}
		out = append(out, p)
	}
	return out, nil
}

func compileRule(spec RuleSpec) (*RuleParser, error) {
	p := &RuleParser{spec: spec}
	for _, pat := range spec.URLPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, eris.Wrapf(err, "url pattern %q", pat)
		}
		p.patterns = append(p.patterns, re)
	}

	for field, rule := range spec.Fields {
		if !model.IsUpdatableColumn(field) || model.IsProvenanceField(field) {
			return nil, eris.Errorf("field %q is not a listing column", field)
		}
		if rule.Selector == "" {
			return nil, eris.Errorf("field %q: selector is required", field)
		}
		cf := compiledField{field: field, rule: rule}
		if rule.Regex != "" {
			re, err := regexp.Compile(rule.Regex)
			if err != nil {
				return nil, eris.Wrapf(err, "field %q regex", field)
			}
			cf.re = re
		}
		p.fields = append(p.fields, cf)
	}
	return p, nil
}

// Name implements Parser.
func (p *RuleParser) Name() string { return p.spec.Name }

// Spec returns the declaration the parser was built from.
func (p *RuleParser) Spec() RuleSpec { return p.spec }

// URLPatterns returns the compiled URL patterns.
func (p *RuleParser) URLPatterns() []*regexp.Regexp { return p.patterns }

// Signature returns the HTML signature, or nil when none is declared.
func (p *RuleParser) Signature() *Signature {
	if len(p.spec.Signature.Markers) == 0 {
		return nil
	}
	return &Signature{Markers: p.spec.Signature.Markers, MinMarkers: p.spec.Signature.MinMarkers}
}

// MediaSelectors implements Parser.
func (p *RuleParser) MediaSelectors() []string { return p.spec.Media }

// UsesCommonFields implements CommonFieldsUser.
func (p *RuleParser) UsesCommonFields() bool { return p.spec.Common == nil || *p.spec.Common }

// NeedsRendering implements Renderer.
func (p *RuleParser) NeedsRendering() bool { return p.spec.Render }

// Parse implements Parser.
func (p *RuleParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	for _, cf := range p.fields {
		sel := doc.Find(cf.rule.Selector)
		if cf.rule.Exists {
			if sel.Length() > 0 {
				fields[cf.field] = true
			}
			continue
		}
		if sel.Length() == 0 {
			continue
		}
		var raw string
		if cf.rule.Attr != "" {
			raw, _ = sel.First().Attr(cf.rule.Attr)
		} else {
			raw = sel.First().Text()
		}
		raw = cleanText(raw)
		if cf.re != nil {
			m := cf.re.FindStringSubmatch(raw)
			switch {
			case m == nil:
				continue
			case len(m) > 1:
				raw = m[1]
			default:
				raw = m[0]
			}
		}
		if v, ok := extract.CoerceField(cf.field, raw); ok {
			fields[cf.field] = v
		}
	}
	return fields
}
