package search

import (
	"sort"

	"github.com/leojay-net/chatshop/pkg/domain"
)

// Rank filters out products missing a value for any criterion field, then
// stable-sorts by the criteria in listed precedence. Multi-key precedence
// falls out of sorting by each criterion in reverse listed order: the final
// pass on the primary key dominates while ties keep the order established by
// earlier passes.
func Rank(products []domain.Product, criteria []domain.Criterion) []domain.Product {
	ranked := filterRankable(products, criteria)
	for i := len(criteria) - 1; i >= 0; i-- {
		criterion := criteria[i]
		sort.SliceStable(ranked, func(a, b int) bool {
			left := sortKey(ranked[a], criterion.Field)
			right := sortKey(ranked[b], criterion.Field)
			if criterion.Ascending {
				return left < right
			}
			return left > right
		})
	}
	return ranked
}

func filterRankable(products []domain.Product, criteria []domain.Criterion) []domain.Product {
	rankable := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if hasAllFields(p, criteria) {
			rankable = append(rankable, p)
		}
	}
	return rankable
}

func hasAllFields(p domain.Product, criteria []domain.Criterion) bool {
	for _, criterion := range criteria {
		switch criterion.Field {
		case domain.FieldPrice:
			if p.Price == nil {
				return false
			}
		case domain.FieldRating:
			if p.Rating == nil {
				return false
			}
		case domain.FieldNumberOfRatings:
			if p.NumberOfRatings == nil {
				return false
			}
		}
	}
	return true
}

// sortKey coerces a criterion field to float64. Present-but-zero values sort
// as zero; absent fields never reach here because of the rankable filter.
func sortKey(p domain.Product, field domain.CriterionField) float64 {
	switch field {
	case domain.FieldPrice:
		return *p.Price
	case domain.FieldRating:
		return *p.Rating
	case domain.FieldNumberOfRatings:
		return float64(*p.NumberOfRatings)
	}
	return 0
}
