package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iaaiFixture = `<html><body>
<div class="table-body">
  <div class="table-row table-row-border">
    <div class="table-cell table-cell--image"><img data-src="//vis.iaai.com/resizer?imageKeys=1" alt=""></div>
    <div class="table-cell">
      <h4 class="heading-7"><a href="/VehicleDetail/43355085~US?RowNumber=0">2020   Chevrolet Malibu LT</a></h4>
      <ul class="data-list">
        <li class="data-list_item"><span class="data-list_label">Stock #:</span><span class="data-list_value"> 36 512 345 </span></li>
        <li class="data-list_item"><span class="data-list__value rtl-disabled" title="Odometer: 58,211 mi (Actual)">58,211 mi (Actual)</span></li>
      </ul>
      <div class="action">Buy Now $7,450</div>
    </div>
  </div>
  <div class="table-row table-row-border">
    <div class="table-cell table-cell--image"><img src="/images/2.jpg"></div>
    <div class="table-cell">
      <h4>2012 FORD F-150 XL</h4>
      <a href="/VehicleDetail/41000001~US"></a>
      <span class="data-list__value rtl-disabled" title="Odometer: 120,000 mi (Not Actual)"></span>
    </div>
  </div>
  <div class="table-row table-row-border">
    <div class="table-cell"><a href="/VehicleDetail/43355085~US?RowNumber=7">2020 Chevrolet Malibu LT</a></div>
  </div>
  <div class="table-row table-row-border">
    <div class="table-cell">Sponsored</div>
  </div>
</div>
</body></html>`

func TestIAAIExtract(t *testing.T) {
	lots := NewIAAIExtractor().Extract(iaaiFixture)
	require.Len(t, lots, 2, "duplicate listings and rows without a detail link are dropped")

	first := lots[0]
	assert.Equal(t, "https://www.iaai.com/VehicleDetail/43355085~US", first.Identity)
	assert.Equal(t, SourceIAAI, first.Source)
	assert.Equal(t, "2020 Chevrolet Malibu LT", first.Title)
	assert.Equal(t, "2020", first.Year)
	assert.Equal(t, "https://vis.iaai.com/resizer?imageKeys=1", first.ImageURL)
	assert.Equal(t, "$7,450 USD", first.BuyNow)
	assert.Equal(t, "58,211 mi (Actual)", first.Odometer)
	assert.Equal(t, "36512345", first.LotNumber)
	assert.Equal(t, "https://www.iaai.com/VehicleDetail/43355085~US?RowNumber=0", first.URL)
}

func TestIAAIFallbacks(t *testing.T) {
	lots := NewIAAIExtractor().Extract(iaaiFixture)
	require.Len(t, lots, 2)

	lot := lots[1]
	assert.Equal(t, "2012 FORD F-150 XL", lot.Title, "title falls back to the row heading")
	assert.Equal(t, "2012", lot.Year)
	assert.Equal(t, "https://www.iaai.com/images/2.jpg", lot.ImageURL)
	assert.Empty(t, lot.BuyNow)
	assert.Equal(t, "120,000 mi (Not Actual)", lot.Odometer, "odometer falls back to the title attribute")
	assert.Equal(t, "41000001", lot.LotNumber, "lot number falls back to the detail path")
}

func TestIAAIIdentityStableAcrossFetches(t *testing.T) {
	a := NewIAAIExtractor().Extract(iaaiFixture)
	b := NewIAAIExtractor().Extract(iaaiFixture)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Identity, b[i].Identity)
	}
}

func TestIAAIExtractMalformed(t *testing.T) {
	e := NewIAAIExtractor()
	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract(`<div class="table-row table-row-border"><span>no link`))
}
