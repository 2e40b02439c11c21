package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sjsage522/lotwatcher/internal/crawler"
)

func TestCaptionFull(t *testing.T) {
	lot := crawler.Lot{
		Title:    "2019 BMW X5 <M-Sport>",
		Year:     "2019",
		Odometer: "45,210 mi (ACTUAL)",
		BuyNow:   "$18,500",
		URL:      "https://www.copart.com/lot/12345678/a?b=1&c=2",
	}

	got := Caption(lot, 1250.5, true, "Call @dealer")
	want := "🚗 <b>2019 BMW X5 &lt;M-Sport&gt;</b>\n" +
		"Year: <b>2019</b>\n" +
		"Odometer: <b>45,210 mi (ACTUAL)</b>\n" +
		"Buy Now: <b>$18,500</b>\n" +
		`Link: <a href="https://www.copart.com/lot/12345678/a?b=1&amp;c=2">Open lot</a>` + "\n" +
		"Estimated delivery: <b>$1250.5</b>\n" +
		"Call @dealer"
	assert.Equal(t, want, got)
}

func TestCaptionMinimal(t *testing.T) {
	got := Caption(crawler.Lot{}, 0, false, "")
	assert.Equal(t, "🚗 <b>Untitled lot</b>\nBuy Now: <i>no price</i>", got)
}
