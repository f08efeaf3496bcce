package quality

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/model"
)

// Severity grades a payload issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue describes one suspicious field value.
type Issue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report collects issues found in a scraped payload. Reports never block a
// merge; they are logged and stored alongside the scrape result.
type Report struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

var placeholderPhrases = []string{
	"lorem ipsum",
	"placeholder",
	"undefined",
	"[object object]",
	"{{",
	"sem descricao",
	"em breve",
	"coming soon",
}

var placeholderExact = map[string]bool{
	"null": true, "nil": true, "n/a": true, "na": true, "nan": true,
	"-": true, "--": true, "test": true, "teste": true, "xxx": true, "tbd": true,
}

var minLengths = map[string]int{
	"name":        3,
	"description": 20,
	"address":     5,
}

var coordinateFields = map[string]bool{"latitude": true, "longitude": true}

// Validate inspects fields and reports suspicious values.
func Validate(fields map[string]any) Report {
	var r Report
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		v := fields[field]
		if IsEmpty(v) {
			continue
		}
		switch kindOf(v) {
		case kindString:
			r.checkString(field, v.(string))
		case kindNumber:
			f, _ := model.ToFloat64(v)
			r.checkNumber(field, f)
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}

func (r *Report) checkString(field, s string) {
	s = strings.TrimSpace(s)
	folded := extract.Fold(s)
	if placeholderExact[folded] {
		r.add(field, SeverityError, fmt.Sprintf("placeholder value %q", s))
		return
	}
	for _, p := range placeholderPhrases {
		if strings.Contains(folded, p) {
			r.add(field, SeverityError, fmt.Sprintf("contains placeholder text %q", p))
			return
		}
	}
	if minLen, ok := minLengths[field]; ok && utf8.RuneCountInString(s) < minLen {
		r.add(field, SeverityWarning, fmt.Sprintf("suspiciously short (%d chars)", utf8.RuneCountInString(s)))
	}
}

func (r *Report) checkNumber(field string, f float64) {
	switch {
	case field == "latitude" && (f < -90 || f > 90):
		r.add(field, SeverityError, "latitude out of range")
	case field == "longitude" && (f < -180 || f > 180):
		r.add(field, SeverityError, "longitude out of range")
	case f < 0 && !coordinateFields[field]:
		r.add(field, SeverityError, "negative value")
	case f == 0 && IsMonetary(field):
		r.add(field, SeverityWarning, "zero price")
	}
}

func (r *Report) add(field string, sev Severity, msg string) {
	issue := Issue{Field: field, Severity: sev, Message: msg}
	if sev == SeverityError {
		r.Errors = append(r.Errors, issue)
		return
	}
	r.Warnings = append(r.Warnings, issue)
}
