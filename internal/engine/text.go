package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kondohub/kondo-scraper/internal/extract"
)

var (
	priceRe     = regexp.MustCompile(`R\$\s*([\d.]+(?:,\d{1,2})?)`)
	condoFeeRe  = regexp.MustCompile(`(?i)condom[ií]nio[^\d$]{0,30}R\$\s*([\d.]+(?:,\d{1,2})?)`)
	areaRe      = regexp.MustCompile(`(\d{1,5}(?:[.,]\d{1,2})?)\s*m(?:²|2\b)`)
	bedroomsRe  = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:quartos?|dormit[óo]rios?|dorms?\.?|su[íi]tes?)\b`)
	parkingRe   = regexp.MustCompile(`(?i)(\d{1,2})\s*vagas?\b`)
	unitsRe     = regexp.MustCompile(`(?i)(\d{1,4})\s*(?:unidades|apartamentos|casas|lotes)\b`)
	floorsRe    = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:andares|pavimentos)\b`)
	towersRe    = regexp.MustCompile(`(?i)(\d{1,2})\s*(?:torres|blocos)\b`)
	phoneRe     = regexp.MustCompile(`\(?\b\d{2}\)?\s?9?\d{4}[-\s]?\d{4}\b`)
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	cepRe       = regexp.MustCompile(`\b\d{5}-\d{3}\b`)
	mapsCoordRe = regexp.MustCompile(`(?:[?&](?:q|ll|center)=|@)(-?\d{1,2}\.\d+),\s*(-?\d{1,3}\.\d+)`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// minLotPrice separates property prices from fees in free text.
const minLotPrice = 10000

func cleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// firstText returns the first non-empty text among selectors.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if t := cleanText(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute among selector/attribute
// pairs.
func firstAttr(doc *goquery.Document, pairs ...[2]string) string {
	for _, p := range pairs {
		if v, ok := doc.Find(p[0]).First().Attr(p[1]); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func metaContent(doc *goquery.Document, names ...string) string {
	for _, n := range names {
		if v := firstAttr(doc,
			[2]string{`meta[property="` + n + `"]`, "content"},
			[2]string{`meta[name="` + n + `"]`, "content"},
		); v != "" {
			return v
		}
	}
	return ""
}

// setIfEmpty stores v under key unless key is already set or v is blank.
func setIfEmpty(fields map[string]any, key string, v any) {
	if _, ok := fields[key]; ok {
		return
	}
	if s, ok := v.(string); ok {
		if s = cleanText(s); s == "" {
			return
		}
		v = s
	}
	if v == nil {
		return
	}
	fields[key] = v
}

// textFields extracts prices, areas and counts from free page text.
func textFields(text string, fields map[string]any) {
	var prices []float64
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		if f, ok := extract.ParseNumber(m[1]); ok && f >= minLotPrice {
			prices = append(prices, f)
		}
	}
	if len(prices) > 0 {
		lo, hi, sum := prices[0], prices[0], 0.0
		for _, p := range prices {
			lo = min(lo, p)
			hi = max(hi, p)
			sum += p
		}
		setIfEmpty(fields, "lot_min_price", lo)
		setIfEmpty(fields, "lot_max_price", hi)
		setIfEmpty(fields, "lot_avg_price", sum/float64(len(prices)))
	}
	if m := condoFeeRe.FindStringSubmatch(text); m != nil {
		if f, ok := extract.ParseNumber(m[1]); ok && f > 0 && f < minLotPrice {
			setIfEmpty(fields, "condo_fee", f)
		}
	}

	var areas []float64
	for _, m := range areaRe.FindAllStringSubmatch(text, -1) {
		if f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil && f > 0 {
			areas = append(areas, f)
		}
	}
	if len(areas) > 0 {
		lo, hi := areas[0], areas[0]
		for _, a := range areas {
			lo = min(lo, a)
			hi = max(hi, a)
		}
		setIfEmpty(fields, "area_min", lo)
		setIfEmpty(fields, "area_max", hi)
	}

	for field, re := range map[string]*regexp.Regexp{
		"bedrooms": bedroomsRe,
		"parking":  parkingRe,
		"units":    unitsRe,
		"floors":   floorsRe,
		"towers":   towersRe,
	} {
		if n := maxInt(re, text); n > 0 {
			setIfEmpty(fields, field, n)
		}
	}
}

func maxInt(re *regexp.Regexp, text string) int {
	best := 0
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}

// contactFields reads phone and email from links, then from text.
func contactFields(doc *goquery.Document, text string, fields map[string]any) {
	if href := firstAttr(doc, [2]string{`a[href^="tel:"]`, "href"}); href != "" {
		setIfEmpty(fields, "phone", strings.TrimPrefix(href, "tel:"))
	} else if m := phoneRe.FindString(text); m != "" {
		setIfEmpty(fields, "phone", m)
	}
	if href := firstAttr(doc, [2]string{`a[href^="mailto:"]`, "href"}); href != "" {
		addr, _, _ := strings.Cut(strings.TrimPrefix(href, "mailto:"), "?")
		setIfEmpty(fields, "email", addr)
	} else if m := emailRe.FindString(text); m != "" {
		setIfEmpty(fields, "email", m)
	}
}

// coordinateFields reads latitude/longitude from geo meta tags, data
// attributes or an embedded map link.
func coordinateFields(doc *goquery.Document, fields map[string]any) {
	lat := metaContent(doc, "place:location:latitude", "geo.position:latitude")
	lng := metaContent(doc, "place:location:longitude", "geo.position:longitude")
	if lat == "" {
		if pos := metaContent(doc, "geo.position", "ICBM"); pos != "" {
			parts := strings.FieldsFunc(pos, func(r rune) bool { return r == ';' || r == ',' })
			if len(parts) == 2 {
				lat, lng = parts[0], parts[1]
			}
		}
	}
	if lat == "" {
		lat = firstAttr(doc, [2]string{"[data-lat]", "data-lat"}, [2]string{"[data-latitude]", "data-latitude"})
		lng = firstAttr(doc, [2]string{"[data-lng]", "data-lng"}, [2]string{"[data-longitude]", "data-longitude"})
	}
	if lat == "" {
		doc.Find(`iframe[src*="google.com/maps"], a[href*="google.com/maps"], a[href*="maps.google"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			ref, _ := s.Attr("src")
			if ref == "" {
				ref, _ = s.Attr("href")
			}
			if m := mapsCoordRe.FindStringSubmatch(ref); m != nil {
				lat, lng = m[1], m[2]
				return false
			}
			return true
		})
	}
	if v, ok := extract.CoerceField("latitude", lat); ok {
		setIfEmpty(fields, "latitude", v)
	}
	if v, ok := extract.CoerceField("longitude", lng); ok {
		setIfEmpty(fields, "longitude", v)
	}
}
