// Package region maps BODS timetable region selectors to GTFS archive URLs.
package region

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultBaseURL is the BODS GTFS timetable download endpoint.
const DefaultBaseURL = "https://data.bus-data.dft.gov.uk/timetable/download/gtfs-file"

// ErrUnknownRegion is returned for selectors outside the catalogue.
var ErrUnknownRegion = errors.New("unknown region")

// Region is a validated region selector.
type Region struct {
	Code string
	Slug string
	Name string
}

var catalogue = map[string]Region{
	"all":       {Code: "all", Slug: "all", Name: "Great Britain"},
	"ea":        {Code: "ea", Slug: "east_anglia", Name: "East Anglia"},
	"em":        {Code: "em", Slug: "east_midlands", Name: "East Midlands"},
	"england":   {Code: "england", Slug: "england", Name: "England"},
	"london":    {Code: "london", Slug: "london", Name: "London"},
	"ne":        {Code: "ne", Slug: "north_east", Name: "North East"},
	"nw":        {Code: "nw", Slug: "north_west", Name: "North West"},
	"scotland":  {Code: "scotland", Slug: "scotland", Name: "Scotland"},
	"se":        {Code: "se", Slug: "south_east", Name: "South East"},
	"sw":        {Code: "sw", Slug: "south_west", Name: "South West"},
	"wales":     {Code: "wales", Slug: "wales", Name: "Wales"},
	"wm":        {Code: "wm", Slug: "west_midlands", Name: "West Midlands"},
	"yorkshire": {Code: "yorkshire", Slug: "yorkshire", Name: "Yorkshire"},
}

// Parse validates a selector. A leading "--" is accepted so the old
// "--london" style selectors keep working.
func Parse(code string) (Region, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(code), "--"))
	r, ok := catalogue[key]
	if !ok {
		return Region{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownRegion, code, strings.Join(Codes(), ", "))
	}
	return r, nil
}

// Codes returns every known selector, sorted.
func Codes() []string {
	codes := make([]string, 0, len(catalogue))
	for code := range catalogue {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All returns every region, sorted by code.
func All() []Region {
	regions := make([]Region, 0, len(catalogue))
	for _, code := range Codes() {
		regions = append(regions, catalogue[code])
	}
	return regions
}

// URL returns the archive URL for the region under baseURL. An empty baseURL
// means DefaultBaseURL.
func (r Region) URL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + r.Slug + "/"
}
