// Package quality decides whether a freshly scraped value may replace an
// existing one, and sanity-checks whole scraped payloads.
package quality

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// Decision is the outcome class of a field comparison.
type Decision string

const (
	Accept Decision = "accept"
	Reject Decision = "reject"
	Skip   Decision = "skip"
)

// String length thresholds: a new string must be more than 20% longer to
// replace the existing one, and one shorter than 80% is data loss.
const (
	longerRatio  = 1.2
	shorterRatio = 0.8
)

// Monetary fields may change by at most this factor in either direction.
const (
	priceBandLow  = 0.5
	priceBandHigh = 2.0
)

var monetaryRe = regexp.MustCompile(`(?i)price|preco|valor|fee|taxa|cost|custo|rent|aluguel`)

// Verdict is the result of ShouldOverwrite.
type Verdict struct {
	ShouldOverwrite bool     `json:"should_overwrite"`
	Decision        Decision `json:"decision"`
	Reason          string   `json:"reason"`
}

func accept(reason string) Verdict { return Verdict{ShouldOverwrite: true, Decision: Accept, Reason: reason} }
func reject(reason string) Verdict { return Verdict{Decision: Reject, Reason: reason} }
func skip(reason string) Verdict   { return Verdict{Decision: Skip, Reason: reason} }

// IsMonetary reports whether field holds a money amount.
func IsMonetary(field string) bool {
	return monetaryRe.MatchString(field)
}

// ShouldOverwrite decides whether newVal may replace existing for field.
// Rules apply in order: empty new values never win; filling an empty field
// is always safe; equal values are left alone; logical types never change;
// then a per-type rule decides.
func ShouldOverwrite(field string, existing, newVal any) Verdict {
	newEmpty, oldEmpty := IsEmpty(newVal), IsEmpty(existing)
	switch {
	case newEmpty && !oldEmpty:
		return reject("new value is empty; keeping existing value")
	case newEmpty:
		return skip("both values are empty")
	case oldEmpty:
		return accept("fills an empty field")
	}

	oldKind, newKind := kindOf(existing), kindOf(newVal)
	if oldKind != newKind {
		return reject(fmt.Sprintf("type mismatch: existing is %s, new is %s", oldKind, newKind))
	}
	if equalValues(oldKind, existing, newVal) {
		return skip("value unchanged")
	}

	switch oldKind {
	case kindString:
		return compareStrings(existing.(string), newVal.(string))
	case kindNumber:
		oldF, _ := model.ToFloat64(existing)
		newF, _ := model.ToFloat64(newVal)
		return compareNumbers(field, oldF, newF)
	case kindBool:
		return accept("scraped boolean is authoritative")
	case kindArray, kindObject:
		oldN, newN := reflect.ValueOf(existing).Len(), reflect.ValueOf(newVal).Len()
		if newN > oldN {
			return accept(fmt.Sprintf("new value has more entries (%d > %d)", newN, oldN))
		}
		return reject(fmt.Sprintf("new value does not have more entries (%d <= %d)", newN, oldN))
	default:
		return reject("unsupported value type")
	}
}

func compareStrings(oldS, newS string) Verdict {
	oldLen := float64(utf8.RuneCountInString(strings.TrimSpace(oldS)))
	newLen := float64(utf8.RuneCountInString(strings.TrimSpace(newS)))
	switch {
	case newLen > oldLen*longerRatio:
		return accept(fmt.Sprintf("new text is more detailed (%d vs %d chars)", int(newLen), int(oldLen)))
	case newLen < oldLen*shorterRatio:
		return reject(fmt.Sprintf("new text is much shorter (%d vs %d chars)", int(newLen), int(oldLen)))
	default:
		return skip(fmt.Sprintf("similar length (%d vs %d chars)", int(newLen), int(oldLen)))
	}
}

func compareNumbers(field string, oldF, newF float64) Verdict {
	switch {
	case newF == 0 && oldF != 0:
		return reject("new value is zero; keeping non-zero existing value")
	case oldF == 0:
		return accept("replaces a zero value")
	}
	if IsMonetary(field) {
		ratio := newF / oldF
		if ratio < priceBandLow || ratio > priceBandHigh {
			return reject(fmt.Sprintf("price change outside [%.1fx, %.1fx] band (%.2fx)", priceBandLow, priceBandHigh, ratio))
		}
	}
	return accept("numeric update")
}

type valueKind string

const (
	kindString valueKind = "string"
	kindNumber valueKind = "number"
	kindBool   valueKind = "boolean"
	kindArray  valueKind = "array"
	kindObject valueKind = "object"
	kindOther  valueKind = "other"
)

func kindOf(v any) valueKind {
	if _, ok := v.(json.Number); ok {
		return kindNumber
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return kindString
	case reflect.Bool:
		return kindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindNumber
	case reflect.Slice, reflect.Array:
		return kindArray
	case reflect.Map:
		return kindObject
	default:
		return kindOther
	}
}

func equalValues(kind valueKind, a, b any) bool {
	switch kind {
	case kindNumber:
		fa, _ := model.ToFloat64(a)
		fb, _ := model.ToFloat64(b)
		return fa == fb
	case kindString:
		return strings.TrimSpace(a.(string)) == strings.TrimSpace(b.(string))
	default:
		return reflect.DeepEqual(a, b)
	}
}

// IsEmpty reports whether v is nil, a blank string, an empty slice or an
// empty map. Zero and false are values.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
