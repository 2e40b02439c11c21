package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "2019 TOYOTA camry", CollapseSpaces("  2019\n\tTOYOTA   camry "))
	assert.Equal(t, "", CollapseSpaces(" \n "))
}

func TestAbsoluteURL(t *testing.T) {
	base := "https://www.copart.com"
	assert.Equal(t, "https://www.copart.com/lot/123", AbsoluteURL(base, "/lot/123"))
	assert.Equal(t, "https://cs.copart.com/a.jpg", AbsoluteURL(base, "//cs.copart.com/a.jpg"))
	assert.Equal(t, "https://x.test/a", AbsoluteURL(base, "https://x.test/a"))
	assert.Equal(t, "https://www.copart.com/lot/9", AbsoluteURL(base+"/", "lot/9"))
	assert.Equal(t, "", AbsoluteURL(base, "  "))
}
