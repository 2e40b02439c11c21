package runner

import (
	"html"
	"strconv"
	"strings"

	"sjsage522/lotwatcher/internal/crawler"
)

// Caption renders the Telegram HTML message for a lot. delivery is the
// estimated delivery total and is omitted when hasDelivery is false.
func Caption(lot crawler.Lot, delivery float64, hasDelivery bool, footer string) string {
	title := lot.Title
	if title == "" {
		title = "Untitled lot"
	}

	lines := []string{"🚗 <b>" + html.EscapeString(title) + "</b>"}
	if lot.Year != "" {
		lines = append(lines, "Year: <b>"+html.EscapeString(lot.Year)+"</b>")
	}
	if lot.Odometer != "" {
		lines = append(lines, "Odometer: <b>"+html.EscapeString(lot.Odometer)+"</b>")
	}
	if lot.BuyNow != "" {
		lines = append(lines, "Buy Now: <b>"+html.EscapeString(lot.BuyNow)+"</b>")
	} else {
		lines = append(lines, "Buy Now: <i>no price</i>")
	}
	if lot.URL != "" {
		lines = append(lines, `Link: <a href="`+html.EscapeString(lot.URL)+`">Open lot</a>`)
	}
	if hasDelivery {
		lines = append(lines, "Estimated delivery: <b>$"+strconv.FormatFloat(delivery, 'f', -1, 64)+"</b>")
	}
	if footer = strings.TrimSpace(footer); footer != "" {
		lines = append(lines, html.EscapeString(footer))
	}
	return strings.Join(lines, "\n")
}

// EmptyNotice is sent when a search produced no new lots
func EmptyNotice(label string) string {
	return "[" + html.EscapeString(label) + "] no new lots yet 🙂"
}
