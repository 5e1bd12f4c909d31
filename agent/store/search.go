package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/uptrace/bun"
)

// Field weights for relevance scoring, applied per query word.
const (
	weightName        = 10
	weightBrand       = 6
	weightDescription = 2
	weightAttribute   = 2
)

// SearchProducts returns for-sale products where at least one query word
// appears in the name, brand or description. Results are ordered by
// relevance score, then units sold, then id.
func (s *BunStore) SearchProducts(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	words := QueryWords(q.Text)
	if len(words) == 0 {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	var candidates []Product
	sel := s.db.NewSelect().
		Model(&candidates).
		Where("p.for_sale = ?", true)
	if q.MaxPriceCents > 0 {
		sel = sel.Where("p.price_cents <= ?", q.MaxPriceCents)
	}
	sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
		for _, w := range words {
			term := "%" + w + "%"
			sq = sq.WhereOr("lower(p.name) LIKE ?", term).
				WhereOr("lower(p.brand) LIKE ?", term).
				WhereOr("lower(p.description) LIKE ?", term)
		}
		return sq
	})
	scoreSQL, scoreArgs := scoreExpr(words)
	err := sel.OrderExpr(scoreSQL+" DESC", scoreArgs...).
		OrderExpr("p.units_sold DESC").
		OrderExpr("p.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, wrapStore("search products", err)
	}

	return RankProducts(candidates, words), nil
}

// scoreExpr renders Score as SQL so that ranking happens before the limit.
func scoreExpr(words []string) (string, []any) {
	fields := []struct {
		column string
		weight int
	}{
		{"lower(p.name)", weightName},
		{"lower(p.brand)", weightBrand},
		{"lower(p.description)", weightDescription},
		{"lower(CAST(p.attributes AS TEXT))", weightAttribute},
	}

	terms := make([]string, 0, len(words)*len(fields))
	args := make([]any, 0, len(words)*len(fields))
	for _, w := range words {
		term := "%" + w + "%"
		for _, f := range fields {
			terms = append(terms, fmt.Sprintf("CASE WHEN %s LIKE ? THEN %d ELSE 0 END", f.column, f.weight))
			args = append(args, term)
		}
	}
	return "(" + strings.Join(terms, " + ") + ")", args
}

// RankProducts scores products against words and sorts them. Products that
// score zero are dropped.
func RankProducts(products []Product, words []string) []SearchHit {
	hits := make([]SearchHit, 0, len(products))
	for _, p := range products {
		score := Score(p, words)
		if score == 0 {
			continue
		}
		hits = append(hits, SearchHit{Product: p, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Product.UnitsSold != b.Product.UnitsSold {
			return a.Product.UnitsSold > b.Product.UnitsSold
		}
		return a.Product.ID < b.Product.ID
	})
	return hits
}

// Score sums the field weights of every word found in each field.
func Score(p Product, words []string) int {
	name := strings.ToLower(p.Name)
	brand := strings.ToLower(p.Brand)
	desc := strings.ToLower(p.Description)
	attrs := attributeText(p.Attributes)

	score := 0
	for _, w := range words {
		if strings.Contains(name, w) {
			score += weightName
		}
		if brand != "" && strings.Contains(brand, w) {
			score += weightBrand
		}
		if desc != "" && strings.Contains(desc, w) {
			score += weightDescription
		}
		if attrs != "" && strings.Contains(attrs, w) {
			score += weightAttribute
		}
	}
	return score
}

// QueryWords lowercases the query, splits it into words and stems plurals,
// dropping characters that carry meaning in LIKE patterns.
func QueryWords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = Stem(strings.Trim(f, "-'"))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	return words
}

var irregularPlurals = map[string]string{
	"mice":     "mouse",
	"geese":    "goose",
	"feet":     "foot",
	"teeth":    "tooth",
	"children": "child",
}

// Stem trims an English plural ending. The result is a prefix of the
// singular form ("scarves" -> "scar", "batteries" -> "batter"), which is all
// substring matching needs.
func Stem(w string) string {
	if v, ok := irregularPlurals[w]; ok {
		return v
	}
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3]
	case strings.HasSuffix(w, "oves"):
		return w[:len(w)-1]
	case strings.HasSuffix(w, "ves"):
		return w[:len(w)-3]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "zes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

func attributeText(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.ToLower(k))
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(attrs[k]))
		b.WriteByte(' ')
	}
	return b.String()
}
