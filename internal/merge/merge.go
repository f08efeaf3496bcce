// Package merge folds a scrape result into an existing listing without ever
// degrading it. Every field decision is recorded with a reason.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/model"
	"github.com/kondohub/kondo-scraper/internal/quality"
)

// pipelineKeys are produced by engines for the pipeline's own use and never
// become listing updates.
var pipelineKeys = map[string]bool{
	"medias":            true,
	"media":             true,
	"images":            true,
	"videos":            true,
	"metadata":          true,
	"platform_metadata": true,
	"pagination":        true,
	"raw":               true,
	"source":            true,
	"confidence":        true,
}

// Result is the outcome of a merge.
type Result struct {
	Updates  map[string]any          `json:"updates"`
	Accepted []model.FieldAcceptance `json:"accepted"`
	Rejected []model.FieldRejection  `json:"rejected"`
}

// Service merges scraped fields into existing ones.
type Service struct {
	// Known filters columns that can be written. Nil accepts every key.
	Known func(field string) bool
}

// NewService returns a Service restricted to updatable listing columns.
func NewService() *Service {
	return &Service{Known: model.IsUpdatableColumn}
}

// IsPipelineKey reports whether key is engine bookkeeping rather than a field.
func IsPipelineKey(key string) bool {
	return pipelineKeys[key] || strings.HasPrefix(key, "_") || model.IsProvenanceField(key)
}

// Merge decides, field by field in sorted order, which scraped values may
// replace existing ones. Protected fields follow their mode; all others go
// through quality.ShouldOverwrite.
func (s *Service) Merge(existing, scraped map[string]any, protected []model.ProtectedField) Result {
	res := Result{Updates: make(map[string]any)}

	modes := make(map[string]model.ProtectMode, len(protected))
	for _, p := range protected {
		if _, dup := modes[p.Field]; !dup {
			modes[p.Field] = p.Mode
		}
	}

	keys := make([]string, 0, len(scraped))
	for k := range scraped {
		if IsPipelineKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		newVal := scraped[field]
		oldVal := existing[field]

		if s.Known != nil && !s.Known(field) {
			res.reject(field, "not a listing column", oldVal, newVal)
			continue
		}

		mode, isProtected := modes[field]
		switch {
		case isProtected && mode == model.ProtectNever:
			res.reject(field, "protected field (never overwrite)", oldVal, newVal)
		case isProtected && mode == model.ProtectIfEmpty:
			switch {
			case !quality.IsEmpty(oldVal):
				res.reject(field, "protected field (if-empty): existing value present", oldVal, newVal)
			case quality.IsEmpty(newVal):
				res.reject(field, "protected field (if-empty): new value is empty", oldVal, newVal)
			default:
				res.accept(field, "protected field (if-empty): fills empty field", newVal)
			}
		default:
			v := quality.ShouldOverwrite(field, oldVal, newVal)
			reason := v.Reason
			if isProtected {
				reason = "protected field (quality-check): " + reason
			}
			if v.ShouldOverwrite {
				res.accept(field, reason, newVal)
			} else {
				res.reject(field, reason, oldVal, newVal)
			}
		}
	}

	zap.L().Debug("merge: completed",
		zap.Int("candidates", len(keys)),
		zap.Int("accepted", len(res.Accepted)),
		zap.Int("rejected", len(res.Rejected)),
	)
	return res
}

func (r *Result) accept(field, reason string, v any) {
	r.Updates[field] = v
	r.Accepted = append(r.Accepted, model.FieldAcceptance{Field: field, Reason: reason, Value: v})
}

func (r *Result) reject(field, reason string, existing, attempted any) {
	r.Rejected = append(r.Rejected, model.FieldRejection{
		Field:          field,
		Reason:         reason,
		ExistingValue:  existing,
		AttemptedValue: attempted,
	})
}

// ParseProtectedFields reads the protected-fields setting. It accepts a
// comma-separated string, a []string, or a list whose entries are strings or
// {field, mode} maps. A bare field name means never; "field:mode" sets the
// mode explicitly.
func ParseProtectedFields(raw any) ([]model.ProtectedField, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return parseEntries(strings.Split(v, ","))
	case []string:
		return parseEntries(v)
	case []model.ProtectedField:
		return v, nil
	case []any:
		var out []model.ProtectedField
		for i, item := range v {
			pf, ok, err := parseItem(item)
			if err != nil {
				return nil, eris.Wrapf(err, "merge: protected_fields[%d]", i)
			}
			if ok {
				out = append(out, pf)
			}
		}
		return out, nil
	default:
		return nil, eris.Errorf("merge: unsupported protected_fields type %T", raw)
	}
}

func parseEntries(entries []string) ([]model.ProtectedField, error) {
	var out []model.ProtectedField
	for _, e := range entries {
		pf, ok, err := parseString(e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, pf)
		}
	}
	return out, nil
}

func parseItem(item any) (model.ProtectedField, bool, error) {
	switch v := item.(type) {
	case string:
		return parseString(v)
	case map[string]any:
		return parseMap(v)
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return parseMap(m)
	default:
		return model.ProtectedField{}, false, eris.Errorf("unsupported entry type %T", item)
	}
}

func parseString(s string) (model.ProtectedField, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.ProtectedField{}, false, nil
	}
	field, mode, hasMode := strings.Cut(s, ":")
	pf := model.ProtectedField{Field: strings.TrimSpace(field), Mode: model.ProtectNever}
	if hasMode {
		pf.Mode = model.ProtectMode(strings.TrimSpace(mode))
	}
	return validate(pf)
}

func parseMap(m map[string]any) (model.ProtectedField, bool, error) {
	field, _ := m["field"].(string)
	if field == "" {
		field, _ = m["name"].(string)
	}
	mode, _ := m["mode"].(string)
	pf := model.ProtectedField{Field: strings.TrimSpace(field), Mode: model.ProtectMode(strings.TrimSpace(mode))}
	if pf.Mode == "" {
		pf.Mode = model.ProtectNever
	}
	if pf.Field == "" {
		return model.ProtectedField{}, false, eris.New("entry has no field")
	}
	return validate(pf)
}

func validate(pf model.ProtectedField) (model.ProtectedField, bool, error) {
	if pf.Field == "" {
		return model.ProtectedField{}, false, eris.New("empty field name")
	}
	if !pf.Mode.Valid() {
		return model.ProtectedField{}, false, eris.Errorf("field %q: unknown protection mode %q", pf.Field, pf.Mode)
	}
	return pf, true, nil
}
