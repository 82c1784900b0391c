package card

import (
	"sort"
	"strings"
)

// FacetAll is the type filter value that matches every card.
const FacetAll = "all"

type Order string

const (
	OrderDesc Order = "desc" // newest first
	OrderAsc  Order = "asc"
)

// ParseOrder maps user input to an Order, defaulting to newest first.
func ParseOrder(s string) Order {
	if Order(strings.ToLower(strings.TrimSpace(s))) == OrderAsc {
		return OrderAsc
	}
	return OrderDesc
}

// Toggle flips the sort direction.
func (o Order) Toggle() Order {
	if o == OrderAsc {
		return OrderDesc
	}
	return OrderAsc
}

// Query selects and orders a view of the library.
type Query struct {
	Search string `form:"q" json:"q"`
	Type   string `form:"type" json:"type"`
	Order  Order  `form:"order" json:"order"`
}

func (q Query) typeFilter() string {
	if q.Type == "" {
		return FacetAll
	}
	return q.Type
}

// Matches reports whether c passes both the search and the type filter.
func (q Query) Matches(c Card) bool {
	if t := q.typeFilter(); t != FacetAll && t != c.Type {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(c.Title), needle) ||
		strings.Contains(strings.ToLower(c.Content), needle)
}

// Filter returns the cards matching q in input order.
func Filter(cards []Card, q Query) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if q.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Sort orders a copy of cards by Date. Equal dates keep their input order.
func Sort(cards []Card, o Order) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	sort.SliceStable(out, func(i, j int) bool {
		if o == OrderAsc {
			return out[i].Date < out[j].Date
		}
		return out[i].Date > out[j].Date
	})
	return out
}

// View is Filter followed by Sort.
func View(cards []Card, q Query) []Card {
	return Sort(Filter(cards, q), ParseOrder(string(q.Order)))
}

// Facets lists the distinct card types in first-seen order, prefixed by FacetAll.
// A type spelled like the sentinel collapses into it. The empty type is left
// out: an empty Query.Type means every card, so it cannot select untyped cards
// on their own, and those only show under FacetAll.
func Facets(cards []Card) []string {
	seen := map[string]struct{}{FacetAll: {}, "": {}}
	out := []string{FacetAll}
	for _, c := range cards {
		if _, ok := seen[c.Type]; ok {
			continue
		}
		seen[c.Type] = struct{}{}
		out = append(out, c.Type)
	}
	return out
}

// Suggest returns the known types that contain typed (case-insensitive),
// excluding an exact match and the FacetAll sentinel.
func Suggest(facets []string, typed string) []string {
	needle := strings.ToLower(typed)
	var out []string
	for _, f := range facets {
		if f == FacetAll || f == typed {
			continue
		}
		if strings.Contains(strings.ToLower(f), needle) {
			out = append(out, f)
		}
	}
	return out
}
