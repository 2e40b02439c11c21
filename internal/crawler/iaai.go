package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/lotwatcher/helpers"
	"sjsage522/lotwatcher/logger"
)

const iaaiBaseURL = "https://www.iaai.com"

var (
	iaaiBuyNowPattern   = regexp.MustCompile(`(?i)Buy Now\s*\$?([\d,]+)`)
	iaaiOdometerTitle   = regexp.MustCompile(`(?i)Odometer:\s*(.+)`)
	iaaiStockLabel      = regexp.MustCompile(`(?i)Stock\s*#`)
	iaaiVehicleIDInPath = regexp.MustCompile(`/VehicleDetail/(\d+)`)
)

// IAAIExtractor parses IAAI search result pages
type IAAIExtractor struct {
	titleStrategies     []FieldStrategy
	odometerStrategies  []FieldStrategy
	lotNumberStrategies []FieldStrategy
}

// NewIAAIExtractor creates an extractor with the default strategy chains
func NewIAAIExtractor() *IAAIExtractor {
	return &IAAIExtractor{
		titleStrategies: []FieldStrategy{
			func(c *candidate) string { return helpers.CollapseSpaces(c.link.Text()) },
			func(c *candidate) string { return text(c.card, "h4") },
		},
		odometerStrategies: []FieldStrategy{
			iaaiOdometerText,
			iaaiOdometerAttr,
		},
		lotNumberStrategies: []FieldStrategy{
			iaaiStockNumber,
			func(c *candidate) string {
				if m := iaaiVehicleIDInPath.FindStringSubmatch(c.href); m != nil {
					return m[1]
				}
				return ""
			},
		},
	}
}

// Extract implements Extractor
func (e *IAAIExtractor) Extract(html string) (lots []Lot) {
	defer func() {
		if r := recover(); r != nil {
			logger.ForSource(SourceIAAI).Error().Interface("panic", r).Msg("Extraction aborted")
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.ForSource(SourceIAAI).Warn().Err(err).Msg("Failed to parse HTML")
		return nil
	}

	seen := make(map[string]struct{})
	doc.Find("div.table-row.table-row-border").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(`a[href^="/VehicleDetail/"]`).First()
		if link.Length() == 0 {
			return
		}
		href := helpers.AbsoluteURL(iaaiBaseURL, firstAttr(link, "href"))
		identity := NormalizeIdentity(href)
		if identity == "" {
			return
		}
		if _, dup := seen[identity]; dup {
			return
		}
		seen[identity] = struct{}{}

		lots = append(lots, e.buildLot(&candidate{
			doc:  doc,
			link: link,
			card: row,
			id:   identity,
			href: href,
		}))
	})
	return lots
}

func (e *IAAIExtractor) buildLot(c *candidate) Lot {
	title := firstNonEmpty(c, e.titleStrategies...)

	img := c.card.Find(".table-cell--image img").First()
	imageURL := ""
	if img.Length() > 0 {
		imageURL = helpers.AbsoluteURL(iaaiBaseURL, firstAttr(img, "src", "data-src"))
	}

	buyNow := ""
	if m := iaaiBuyNowPattern.FindStringSubmatch(helpers.CollapseSpaces(c.card.Text())); m != nil {
		buyNow = "$" + m[1] + " USD"
	}

	return Lot{
		Identity:  c.id,
		Source:    SourceIAAI,
		LotNumber: firstNonEmpty(c, e.lotNumberStrategies...),
		Title:     title,
		Year:      yearFrom(title),
		ImageURL:  imageURL,
		BuyNow:    buyNow,
		Odometer:  firstNonEmpty(c, e.odometerStrategies...),
		URL:       c.href,
	}
}

const iaaiOdometerSelector = `span.data-list__value.rtl-disabled[title^="Odometer:"]`

func iaaiOdometerText(c *candidate) string {
	return text(c.card, iaaiOdometerSelector)
}

func iaaiOdometerAttr(c *candidate) string {
	el := c.card.Find(iaaiOdometerSelector).First()
	if m := iaaiOdometerTitle.FindStringSubmatch(firstAttr(el, "title")); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func iaaiStockNumber(c *candidate) string {
	var stock string
	c.card.Find("li.data-list_item").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if !iaaiStockLabel.MatchString(text(li, "span.data-list_label")) {
			return true
		}
		stock = strings.Join(strings.Fields(li.Find("span.data-list_value").First().Text()), "")
		return stock == ""
	})
	return stock
}
