package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterIdentities(t *testing.T) {
	known := map[string]struct{}{
		"https://www.iaai.com/VehicleDetail/41000002~US": {},
		"https://www.iaai.com/VehicleDetail/41000001~US": {},
		"12345678": {},
	}

	assert.Equal(t, []string{
		"12345678",
		"https://www.iaai.com/VehicleDetail/41000001~US",
		"https://www.iaai.com/VehicleDetail/41000002~US",
	}, filterIdentities(known, ""))

	assert.Equal(t, []string{"https://www.iaai.com/VehicleDetail/41000001~US"}, filterIdentities(known, "41000001~us"))
	assert.Empty(t, filterIdentities(known, "nope"))
}

func TestValidateSource(t *testing.T) {
	for _, source := range []string{"copart", "iaai"} {
		got, err := validateSource(source)
		require.NoError(t, err)
		assert.Equal(t, source, got)
	}

	_, err := validateSource("ebay")
	assert.Error(t, err)
}
