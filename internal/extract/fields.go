package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kondohub/kondo-scraper/internal/model"
)

// fieldAliases maps normalized payload keys (accent-folded, lowercase,
// alphanumerics only) to listing columns.
var fieldAliases = map[string]string{
	"name": "name", "nome": "name", "title": "name", "titulo": "name",
	"propertyname": "name", "nomeempreendimento": "name", "empreendimento": "name",

	"description": "description", "descricao": "description", "sobre": "description",
	"about": "description", "fulldescription": "description",

	"streetaddress": "address_street", "street": "address_street", "rua": "address_street",
	"logradouro": "address_street",
	"streetnumber": "address_number", "numero": "address_number",
	"neighborhood": "neighborhood", "bairro": "neighborhood", "district": "neighborhood",
	"addresslocality": "city", "city": "city", "cidade": "city", "municipio": "city",
	"addressregion": "state", "state": "state", "estado": "state", "uf": "state",
	"postalcode": "zip_code", "zipcode": "zip_code", "cep": "zip_code",

	"latitude": "latitude", "lat": "latitude",
	"longitude": "longitude", "lng": "longitude", "lon": "longitude",

	"price": "lot_avg_price", "preco": "lot_avg_price", "valor": "lot_avg_price",
	"averageprice": "lot_avg_price", "precomedio": "lot_avg_price",
	"minprice": "lot_min_price", "lowprice": "lot_min_price", "precominimo": "lot_min_price",
	"pricefrom": "lot_min_price", "apartirde": "lot_min_price",
	"maxprice": "lot_max_price", "highprice": "lot_max_price", "precomaximo": "lot_max_price",
	"condofee": "condo_fee", "condominiumfee": "condo_fee", "taxacondominio": "condo_fee",
	"valorcondominio": "condo_fee", "monthlycondofee": "condo_fee",
	"minarea": "area_min", "areamin": "area_min", "areaminima": "area_min",
	"maxarea": "area_max", "areamax": "area_max", "areamaxima": "area_max",

	"units": "units", "unidades": "units", "totalunits": "units", "numberofunits": "units",
	"floors": "floors", "andares": "floors", "numberoffloors": "floors", "pavimentos": "floors",
	"towers": "towers", "torres": "towers", "blocos": "towers",
	"bedrooms": "bedrooms", "quartos": "bedrooms", "dormitorios": "bedrooms",
	"numberofbedrooms": "bedrooms", "numberofrooms": "bedrooms",
	"parking": "parking", "vagas": "parking", "parkingspaces": "parking", "garagem": "parking",

	"telephone": "phone", "phone": "phone", "telefone": "phone", "whatsapp": "phone",
	"email": "email",
	"deliverydate": "delivery_date", "dataentrega": "delivery_date",
	"previsaoentrega": "delivery_date", "entrega": "delivery_date",
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey folds a payload key for alias lookup.
func NormalizeKey(k string) string {
	return nonAlnumRe.ReplaceAllString(Fold(k), "")
}

// MapStructured maps an embedded payload onto listing columns with a
// breadth-first search, so shallower keys win over nested ones. Values are
// coerced to the column type; ones that do not convert are skipped.
func MapStructured(data any) map[string]any {
	out := make(map[string]any)
	type node struct {
		v     any
		depth int
	}
	queue := []node{{data, 0}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.depth > maxWalkDepth {
			continue
		}
		switch t := n.v.(type) {
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				v := t[k]
				switch v.(type) {
				case map[string]any, []any:
					queue = append(queue, node{v, n.depth + 1})
					continue
				}
				field, ok := fieldAliases[NormalizeKey(k)]
				if !ok {
					continue
				}
				if _, done := out[field]; done {
					continue
				}
				if val, ok := CoerceField(field, v); ok {
					out[field] = val
				}
			}
		case []any:
			for _, item := range t {
				queue = append(queue, node{item, n.depth + 1})
			}
		}
	}
	return out
}

// CoerceField converts a scraped value to the column type of field,
// parsing Brazilian-formatted numbers. Empty strings are rejected.
func CoerceField(field string, v any) (any, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, false
		}
		if field == "latitude" || field == "longitude" {
			f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
		if numericField(field) {
			f, ok := ParseNumber(s)
			if !ok {
				return nil, false
			}
			return model.Coerce(field, f)
		}
		return model.Coerce(field, s)
	}
	return model.Coerce(field, v)
}

func numericField(field string) bool {
	v, ok := model.Coerce(field, 0.0)
	if !ok {
		return false
	}
	_, isString := v.(string)
	return !isString
}

var numberRe = regexp.MustCompile(`-?\d[\d.,]*`)

// ParseNumber reads the first number in s, accepting "R$ 450.000,00",
// "1.234", "85,5" and plain "450000.50".
func ParseNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.TrimRight(m, ".,")
	lastDot := strings.LastIndex(m, ".")
	lastComma := strings.LastIndex(m, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			m = strings.ReplaceAll(m, ".", "")
			m = strings.Replace(m, ",", ".", 1)
		} else {
			m = strings.ReplaceAll(m, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(m, ",") > 1 || len(m)-lastComma-1 == 3 {
			m = strings.ReplaceAll(m, ",", "")
		} else {
			m = strings.Replace(m, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(m, ".") > 1 || len(m)-lastDot-1 == 3 {
			m = strings.ReplaceAll(m, ".", "")
		}
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

// amenityKeywords maps amenity columns to accent-folded phrases.
var amenityKeywords = map[string][]string{
	"has_pool":          {"piscina", "pool"},
	"has_gym":           {"academia", "fitness", "ginastica", "gym"},
	"has_playground":    {"playground", "parquinho"},
	"has_party_hall":    {"salao de festas", "salao de festa", "party hall"},
	"has_barbecue":      {"churrasqueira", "barbecue"},
	"has_sauna":         {"sauna"},
	"has_sports_court":  {"quadra poliesportiva", "quadra esportiva", "quadra de tenis", "quadra de squash", "quadra"},
	"has_concierge":     {"portaria 24", "concierge", "portaria blindada"},
	"has_coworking":     {"coworking", "co-working"},
	"has_gourmet_space": {"espaco gourmet", "gourmet"},
	"pet_friendly":      {"pet place", "pet friendly", "pet care", "espaco pet", "pet"},
}

// DetectAmenities returns true for every amenity mentioned in text. Absent
// amenities are omitted rather than reported false.
func DetectAmenities(text string) map[string]any {
	folded := " " + nonWordRe.ReplaceAllString(Fold(text), " ") + " "
	out := make(map[string]any)
	for field, kws := range amenityKeywords {
		for _, kw := range kws {
			if strings.Contains(folded, " "+kw+" ") {
				out[field] = true
				break
			}
		}
	}
	return out
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9-]+`)
