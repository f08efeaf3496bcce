package extract

import (
	"strings"

	"github.com/kondohub/kondo-scraper/internal/config"
)

// DefaultKeywords are the listing terms whose presence in an embedded
// payload raises extraction confidence. Matched accent-insensitively.
var DefaultKeywords = []string{
	"condominio", "empreendimento", "apartamento", "dormitorio", "quarto",
	"suite", "vaga", "area", "metragem", "planta", "piscina", "academia",
	"lazer", "endereco", "bairro", "cidade", "preco", "valor", "torre",
	"andar", "entrega", "lancamento", "descricao", "galeria", "foto",
	"imagem", "address", "price", "bedroom", "amenities",
}

// Weights parameterize the confidence score of an embedded payload. The
// score is the sum of a size term, a nesting-depth term and a keyword
// term, each capped, and the total clamped to 1.
type Weights struct {
	SizeWeight    float64
	SizeCap       int
	DepthWeight   float64
	DepthCap      int
	KeywordWeight float64
	KeywordCap    float64
	Keywords      []string
}

// DefaultWeights returns the stock confidence weights.
func DefaultWeights() Weights {
	return Weights{
		SizeWeight:    0.3,
		SizeCap:       10000,
		DepthWeight:   0.2,
		DepthCap:      10,
		KeywordWeight: 0.05,
		KeywordCap:    0.5,
		Keywords:      DefaultKeywords,
	}
}

// WeightsFromConfig builds Weights from configuration, falling back to the
// defaults for unset caps and an empty keyword list.
func WeightsFromConfig(c config.ConfidenceConfig) Weights {
	w := Weights{
		SizeWeight:    c.SizeWeight,
		SizeCap:       c.SizeCap,
		DepthWeight:   c.DepthWeight,
		DepthCap:      c.DepthCap,
		KeywordWeight: c.KeywordWeight,
		KeywordCap:    c.KeywordCap,
		Keywords:      c.Keywords,
	}
	def := DefaultWeights()
	if w.SizeCap <= 0 {
		w.SizeCap = def.SizeCap
	}
	if w.DepthCap <= 0 {
		w.DepthCap = def.DepthCap
	}
	if len(w.Keywords) == 0 {
		w.Keywords = def.Keywords
	}
	return w
}

// Score computes the confidence of a parsed payload whose serialized form
// is raw.
func (w Weights) Score(raw string, data any) float64 {
	size := float64(len(raw)) / float64(w.SizeCap)
	if size > 1 {
		size = 1
	}
	depth := float64(nestingDepth(data, 0, w.DepthCap)) / float64(w.DepthCap)
	if depth > 1 {
		depth = 1
	}

	folded := Fold(raw)
	matched := 0
	for _, kw := range w.Keywords {
		if strings.Contains(folded, Fold(kw)) {
			matched++
		}
	}
	keywords := w.KeywordWeight * float64(matched)
	if keywords > w.KeywordCap {
		keywords = w.KeywordCap
	}

	score := w.SizeWeight*size + w.DepthWeight*depth + keywords
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// nestingDepth returns the container depth of v, stopping at limit.
func nestingDepth(v any, level, limit int) int {
	if level >= limit {
		return level
	}
	best := level
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			if d := nestingDepth(child, level+1, limit); d > best {
				best = d
			}
		}
	case []any:
		for _, child := range t {
			if d := nestingDepth(child, level+1, limit); d > best {
				best = d
			}
		}
	}
	return best
}
