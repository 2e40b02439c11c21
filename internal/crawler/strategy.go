package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/lotwatcher/helpers"
)

// candidate is the element a lot was discovered from, with its surrounding scope
type candidate struct {
	doc  *goquery.Document
	link *goquery.Selection
	card *goquery.Selection
	id   string
	href string
}

// FieldStrategy extracts one field from a candidate, "" meaning not found
type FieldStrategy func(c *candidate) string

// finder looks for a field inside a single container
type finder func(s *goquery.Selection) string

// firstNonEmpty applies strategies in order and keeps the first result
func firstNonEmpty(c *candidate, strategies ...FieldStrategy) string {
	for _, strategy := range strategies {
		if strategy == nil {
			continue
		}
		if result := strings.TrimSpace(strategy(c)); result != "" {
			return result
		}
	}
	return ""
}

// maxAncestors bounds how far up the tree container strategies climb
const maxAncestors = 5

// inCard runs find on the lot's own row container
func inCard(find finder) FieldStrategy {
	return func(c *candidate) string {
		if c.card == nil || c.card.Length() == 0 {
			return ""
		}
		return find(c.card)
	}
}

// inAncestors runs find on up to maxAncestors enclosing containers. A container
// that also holds links to other lots belongs to the whole result list, so the
// climb stops there.
func inAncestors(find finder) FieldStrategy {
	return func(c *candidate) string {
		start := c.link
		if c.card != nil && c.card.Length() > 0 {
			start = c.card
		}
		parents := start.ParentsFiltered("tr, tbody, table, div")
		for i := 0; i < parents.Length() && i < maxAncestors; i++ {
			parent := parents.Eq(i)
			if !ownedBy(parent, c.id) {
				return ""
			}
			if v := find(parent); v != "" {
				return v
			}
		}
		return ""
	}
}

// ownedBy reports whether every lot link inside s points at lotID
func ownedBy(s *goquery.Selection, lotID string) bool {
	owned := true
	s.Find(`a[href*="/lot/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := copartLotPattern.FindStringSubmatch(href); m != nil && m[1] != lotID {
			owned = false
			return false
		}
		return true
	})
	return owned
}

// scope is where free-form title heuristics may look: the lot's card, or
// the link's immediate parent when no card was recognised
func (c *candidate) scope() *goquery.Selection {
	if c.card != nil && c.card.Length() > 0 {
		return c.card
	}
	return c.link.Parent()
}

// text returns the collapsed text of the first match of selector
func text(s *goquery.Selection, selector string) string {
	return helpers.CollapseSpaces(s.Find(selector).First().Text())
}

// firstAttr returns the first non-empty attribute of s among names
func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var yearPattern = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// yearFrom returns the first plausible model year in s
func yearFrom(s string) string {
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// isPlaceholderTitle detects image alt texts and other labels that do not name a vehicle
func isPlaceholderTitle(title, lotID string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return t == "" || len(t) < 5 || strings.Contains(t, "image") || t == lotID
}
