package crawler

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/lotwatcher/helpers"
	"sjsage522/lotwatcher/logger"
)

const copartBaseURL = "https://www.copart.com"

var (
	copartLotPattern   = regexp.MustCompile(`(?i)/lot/(\d+)`)
	copartSlugPattern  = regexp.MustCompile(`(?i)-(\d{4})-(.+?)-(.+?)(?:-nj|-tx|-ny|-fl|-ca|-ga|-oh|-pa|-ct|$)`)
	copartHrefYear     = regexp.MustCompile(`-(\d{4})-`)
	copartPricePattern = regexp.MustCompile(`\$?([\d,]+\.?\d*)`)
	leadingDigit       = regexp.MustCompile(`^\d`)
)

// copartAnchors are tried in order; a lot linked by several anchors keeps its first
var copartAnchors = []string{
	`a[href*="/lot/"]`,
	`a[data-url*="/lot/"]`,
}

const copartCardSelector = `tr, div[data-uname], .search-results-row, .lot-row`

// CopartExtractor parses rendered Copart search result pages
type CopartExtractor struct {
	titleStrategies    []FieldStrategy
	priceStrategies    []FieldStrategy
	odometerStrategies []FieldStrategy
}

// NewCopartExtractor creates an extractor with the default strategy chains
func NewCopartExtractor() *CopartExtractor {
	return &CopartExtractor{
		titleStrategies: []FieldStrategy{
			copartImageTitle,
			copartDescriptionTitle,
			copartTextScanTitle,
			copartSlugTitle,
		},
		priceStrategies: []FieldStrategy{
			inCard(copartPriceIn),
			inAncestors(copartPriceIn),
			copartPagePrice,
		},
		odometerStrategies: []FieldStrategy{
			copartRowOdometer,
			inCard(copartOdometerIn),
			inAncestors(copartOdometerIn),
			copartPageOdometer,
		},
	}
}

// Extract implements Extractor
func (e *CopartExtractor) Extract(html string) (lots []Lot) {
	defer func() {
		if r := recover(); r != nil {
			logger.ForSource(SourceCopart).Error().Interface("panic", r).Msg("Extraction aborted")
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.ForSource(SourceCopart).Warn().Err(err).Msg("Failed to parse HTML")
		return nil
	}

	seen := make(map[string]struct{})
	for _, selector := range copartAnchors {
		doc.Find(selector).Each(func(_ int, link *goquery.Selection) {
			href := firstAttr(link, "href", "data-url")
			m := copartLotPattern.FindStringSubmatch(href)
			if m == nil {
				return
			}
			lotID := m[1]
			if _, dup := seen[lotID]; dup {
				return
			}
			seen[lotID] = struct{}{}

			lots = append(lots, e.buildLot(&candidate{
				doc:  doc,
				link: link,
				card: link.Closest(copartCardSelector),
				id:   lotID,
				href: href,
			}))
		})
	}
	return lots
}

func (e *CopartExtractor) buildLot(c *candidate) Lot {
	title := helpers.CollapseSpaces(firstNonEmpty(c, e.titleStrategies...))
	synthesized := title == ""
	if synthesized {
		title = fmt.Sprintf("Lot %s", c.id)
	}

	year := ""
	if !synthesized {
		year = yearFrom(title)
	}
	if year == "" {
		if m := copartHrefYear.FindStringSubmatch(c.href); m != nil {
			year = m[1]
		}
	}

	img := c.link.Find("img").First()
	imageURL := ""
	if img.Length() > 0 {
		imageURL = helpers.AbsoluteURL(copartBaseURL, firstAttr(img, "src", "lazy-src", "data-src"))
	}

	return Lot{
		Identity:  NormalizeIdentity(c.id),
		Source:    SourceCopart,
		LotNumber: c.id,
		Title:     title,
		Year:      year,
		ImageURL:  imageURL,
		BuyNow:    firstNonEmpty(c, e.priceStrategies...),
		Odometer:  firstNonEmpty(c, e.odometerStrategies...),
		URL:       helpers.AbsoluteURL(copartBaseURL, c.href),
	}
}

func copartImageTitle(c *candidate) string {
	img := c.link.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	title := firstAttr(img, "title", "alt")
	if isPlaceholderTitle(title, c.id) {
		return ""
	}
	return title
}

func copartDescriptionTitle(c *candidate) string {
	title := text(c.scope(), `[data-uname="lotsearchLotdescription"], [data-uname="lotsearchTitle"], [data-uname*="description"]`)
	if isPlaceholderTitle(title, c.id) {
		return ""
	}
	return title
}

// copartTextScanTitle picks the first cell that reads like "2019 TOYOTA CAMRY"
func copartTextScanTitle(c *candidate) string {
	var found string
	c.scope().Find("td, div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := helpers.CollapseSpaces(s.Text())
		lower := strings.ToLower(t)
		if len(t) > 10 && yearFrom(t) != "" &&
			!strings.Contains(lower, "image") &&
			!strings.Contains(t, "$") &&
			!strings.Contains(lower, "buy") {
			found = t
			return false
		}
		return true
	})
	return found
}

// copartSlugTitle rebuilds a title from /lot/{id}/clean-title-2018-bmw-430xi-gran-coupe-nj-trenton
func copartSlugTitle(c *candidate) string {
	slug := c.href
	if u, err := url.Parse(c.href); err == nil {
		slug = u.Path
	}
	slug = path.Base(slug)

	m := copartSlugPattern.FindStringSubmatch(slug)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s", m[1], strings.ToUpper(m[2]), strings.ReplaceAll(m[3], "-", " "))
}

// copartPriceIn reads the Buy It Now amount inside s
func copartPriceIn(s *goquery.Selection) string {
	var price string
	s.Find("span.button-buyitnow").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		price = copartPriceFromButton(btn)
		return price == ""
	})
	return price
}

func copartPriceFromButton(btn *goquery.Selection) string {
	amount := btn.Find("span.search_result_amount_block span.currencyAmount").First()
	if amount.Length() == 0 {
		return ""
	}
	if m := copartPricePattern.FindStringSubmatch(strings.TrimSpace(amount.Text())); m != nil {
		return "$" + m[1]
	}
	return ""
}

// copartPagePrice scans every Buy It Now button on the page and keeps the one
// whose nearest lot-bearing ancestor links to this lot
func copartPagePrice(c *candidate) string {
	var price string
	c.doc.Find("span.button-buyitnow").EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		if belongsTo(btn, c.id) {
			price = copartPriceFromButton(btn)
		}
		return price == ""
	})
	return price
}

// belongsTo reports whether the nearest lot-bearing ancestor of s links only to lotID
func belongsTo(s *goquery.Selection, lotID string) bool {
	parents := s.ParentsFiltered("tr, div, tbody, table")
	for i := 0; i < parents.Length() && i < maxAncestors; i++ {
		parent := parents.Eq(i)
		if parent.Find(`a[href*="/lot/"]`).Length() == 0 {
			continue
		}
		return ownedBy(parent, lotID)
	}
	return false
}

// copartOdometerIn finds the value next to an "Odometer" label inside s,
// keeping annotations such as "(ACTUAL)"
func copartOdometerIn(s *goquery.Selection) string {
	var odometer string
	s.Find("div.search_result_veh_info_block label.search_result_meta_data_label").EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if strings.ToLower(strings.TrimSpace(label.Text())) != "odometer" {
			return true
		}
		value := helpers.CollapseSpaces(label.NextFiltered("div").First().Text())
		if leadingDigit.MatchString(value) {
			odometer = value
			return false
		}
		return true
	})
	return odometer
}

func copartRowOdometer(c *candidate) string {
	row := c.link.Closest("tr")
	if row.Length() == 0 {
		return ""
	}
	return copartOdometerIn(row)
}

func copartPageOdometer(c *candidate) string {
	var odometer string
	c.doc.Find("tr[data-lotnumber]").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if v, _ := row.Attr("data-lotnumber"); strings.TrimSpace(v) == c.id {
			odometer = copartOdometerIn(row)
		}
		return odometer == ""
	})
	return odometer
}
