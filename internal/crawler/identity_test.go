package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"query string", "https://www.iaai.com/VehicleDetail/43355085~US?RowNumber=3", "https://www.iaai.com/VehicleDetail/43355085~US"},
		{"fragment", "https://www.iaai.com/VehicleDetail/1#photos", "https://www.iaai.com/VehicleDetail/1"},
		{"host case", "https://WWW.IAAI.com/VehicleDetail/1", "https://www.iaai.com/VehicleDetail/1"},
		{"surrounding whitespace", "  https://www.iaai.com/VehicleDetail/1 \n", "https://www.iaai.com/VehicleDetail/1"},
		{"default https port", "https://www.iaai.com:443/VehicleDetail/1~US", "https://www.iaai.com/VehicleDetail/1~US"},
		{"lot id whitespace", " 12345678\t", "12345678"},
		{"lot id inner whitespace", "123 456 78", "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NormalizeIdentity(tt.b), NormalizeIdentity(tt.a))
		})
	}

	assert.Equal(t, "", NormalizeIdentity("   "))
	assert.Equal(t, "https://www.iaai.com/VehicleDetail/1", NormalizeIdentity("https://www.iaai.com/VehicleDetail/1?x=1"))
}

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://www.copart.com/lot/1/clean-title", CanonicalURL("https://www.copart.com/lot/1/clean-title?backUrl=x"))
	assert.Equal(t, "", CanonicalURL("/lot/1"))

	assert.Equal(t, "https://www.iaai.com/VehicleDetail/1~US", CanonicalURL("https://www.iaai.com:443/VehicleDetail/1~US"))
	assert.Equal(t, "http://www.copart.com/lot/1", CanonicalURL("HTTP://www.copart.com:80/lot/1"))
	assert.Equal(t, "https://www.copart.com:8443/lot/1", CanonicalURL("https://www.copart.com:8443/lot/1"))
	assert.Equal(t, "http://www.copart.com:443/lot/1", CanonicalURL("http://www.copart.com:443/lot/1"))
}
