package engine

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/kondohub/kondo-scraper/internal/extract"
	"github.com/kondohub/kondo-scraper/internal/platform"
)

// GrupoZapURLPattern matches listing pages on the Grupo ZAP portals.
const GrupoZapURLPattern = `(?i)^https?://(?:www\.)?(?:zapimoveis|vivareal)\.com\.br/`

// grupoZapRoots locate the listing object in the portal's __NEXT_DATA__.
var grupoZapRoots = []string{
	"props.pageProps.initialProps.listing",
	"props.pageProps.listing",
	"props.pageProps.initialProps.development",
	"props.pageProps.development",
}

// grupoZapPaths maps listing columns to gjson paths relative to the listing.
var grupoZapPaths = map[string][]string{
	"name":           {"title", "name"},
	"description":    {"description"},
	"address_street": {"address.street"},
	"address_number": {"address.streetNumber"},
	"neighborhood":   {"address.neighborhood"},
	"city":           {"address.city"},
	"state":          {"address.stateAcronym", "address.state"},
	"zip_code":       {"address.zipCode"},
	"latitude":       {"address.point.lat", "address.point.latitude"},
	"longitude":      {"address.point.lon", "address.point.lng", "address.point.longitude"},
	"lot_avg_price":  {"pricingInfos.0.price", "prices.mainValue"},
	"lot_min_price":  {"prices.minValue", "pricingInfos.0.price"},
	"lot_max_price":  {"prices.maxValue"},
	"condo_fee":      {"pricingInfos.0.monthlyCondoFee"},
	"area_min":       {"usableAreas.0", "totalAreas.0"},
	"area_max":       {"usableAreas.last", "totalAreas.last"},
	"bedrooms":       {"bedrooms.last"},
	"parking":        {"parkingSpaces.last"},
	"units":          {"unitsOnTheFloor", "units"},
	"floors":         {"floors.0", "floors"},
	"towers":         {"buildings", "towers"},
	"phone":          {"advertiserContact.phones.0", "account.phone"},
	"delivery_date":  {"deliveredAt", "deliveryDate"},
}

// grupoZapAmenities maps the portal's amenity codes to listing columns.
var grupoZapAmenities = map[string]string{
	"POOL":           "has_pool",
	"GYM":            "has_gym",
	"PLAYGROUND":     "has_playground",
	"PARTY_HALL":     "has_party_hall",
	"BARBECUE_GRILL": "has_barbecue",
	"SAUNA":          "has_sauna",
	"SPORTS_COURT":   "has_sports_court",
	"TENNIS_COURT":   "has_sports_court",
	"CONCIERGE_24H":  "has_concierge",
	"COWORKING":      "has_coworking",
	"GOURMET_SPACE":  "has_gourmet_space",
	"PETS_ALLOWED":   "pet_friendly",
	"PET_SPACE":      "pet_friendly",
}

// galleryWidth and galleryHeight fill the portal's image URL templates.
const (
	galleryWidth  = "1920"
	galleryHeight = "1080"
)

// GrupoZapParser reads ZAP Imóveis and Viva Real listing pages.
type GrupoZapParser struct{}

// Name implements Parser.
func (GrupoZapParser) Name() string { return "grupozap" }

// MediaSelectors implements Parser.
func (GrupoZapParser) MediaSelectors() []string {
	return []string{`[data-testid="carousel"] img`, `.carousel__item img`, `[class*="carousel"] img`}
}

// Parse implements Parser.
func (GrupoZapParser) Parse(doc *goquery.Document, _ *platform.Page) map[string]any {
	fields := make(map[string]any)
	listing := grupoZapListing(doc)
	if listing.Exists() {
		for field, paths := range grupoZapPaths {
			for _, p := range paths {
				r := lookup(listing, p)
				if !r.Exists() || r.Type == gjson.Null {
					continue
				}
				if v, ok := extract.CoerceField(field, r.Value()); ok {
					fields[field] = v
					break
				}
			}
		}
		listing.Get("amenities").ForEach(func(_, a gjson.Result) bool {
			if col, ok := grupoZapAmenities[strings.ToUpper(a.String())]; ok {
				fields[col] = true
			}
			return true
		})
	}
	return fields
}

// ParseMedia implements MediaParser. Image URLs are templates with
// {action}, {width} and {height} placeholders.
func (GrupoZapParser) ParseMedia(doc *goquery.Document, page *platform.Page) []string {
	listing := grupoZapListing(doc)
	if !listing.Exists() {
		return nil
	}
	base := pageURLOf(page)
	var out []string
	seen := make(map[string]bool)
	for _, key := range []string{"medias", "images"} {
		listing.Get(key).ForEach(func(_, m gjson.Result) bool {
			raw := m.Get("url").String()
			if raw == "" {
				raw = m.String()
			}
			raw = strings.NewReplacer(
				"{action}", "fit-in",
				"{width}", galleryWidth,
				"{height}", galleryHeight,
				"{description}", "foto",
			).Replace(raw)
			if u := extract.ResolveURL(base, raw); u != "" && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
			return true
		})
	}
	return out
}

func grupoZapListing(doc *goquery.Document) gjson.Result {
	raw := doc.Find(nextDataSelector).First().Text()
	if raw == "" || !gjson.Valid(raw) {
		return gjson.Result{}
	}
	for _, root := range grupoZapRoots {
		if r := gjson.Get(raw, root); r.IsObject() {
			return r
		}
	}
	return gjson.Result{}
}

// lookup resolves a gjson path; a trailing ".last" selects the final array
// element.
func lookup(obj gjson.Result, path string) gjson.Result {
	arrPath, ok := strings.CutSuffix(path, ".last")
	if !ok {
		return obj.Get(path)
	}
	arr := obj.Get(arrPath).Array()
	if len(arr) == 0 {
		return gjson.Result{}
	}
	return arr[len(arr)-1]
}
