package region

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		slug string
	}{
		{"all", "all"},
		{"london", "london"},
		{"--ea", "east_anglia"},
		{"WM", "west_midlands"},
		{" yorkshire ", "yorkshire"},
	}
	for _, tt := range tests {
		r, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.slug, r.Slug)
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRegion))

	_, err = Parse("")
	assert.True(t, errors.Is(err, ErrUnknownRegion))
}

func TestCatalogueSize(t *testing.T) {
	// one national selector plus twelve sub-national ones
	assert.Len(t, Codes(), 13)
	assert.Len(t, All(), 13)
	assert.Equal(t, "all", All()[0].Code)
}

func TestURL(t *testing.T) {
	r, err := Parse("ne")
	require.NoError(t, err)

	assert.Equal(t, "https://data.bus-data.dft.gov.uk/timetable/download/gtfs-file/north_east/", r.URL(""))
	assert.Equal(t, "http://127.0.0.1:8080/gtfs/north_east/", r.URL("http://127.0.0.1:8080/gtfs/"))
}
