package consts

import "fmt"

var usStateAbbr map[string]string

func init() {
	usStateAbbr = map[string]string{
		"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
		"California": "CA", "Colorado": "CO", "Connecticut": "CT",
		"Delaware": "DE", "District of Columbia": "DC", "Florida": "FL",
		"Georgia": "GA", "Hawaii": "HI", "Idaho": "ID", "Illinois": "IL",
		"Indiana": "IN", "Iowa": "IA", "Kansas": "KS", "Kentucky": "KY",
		"Louisiana": "LA", "Maine": "ME", "Maryland": "MD",
		"Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN",
		"Mississippi": "MS", "Missouri": "MO", "Montana": "MT",
		"Nebraska": "NE", "Nevada": "NV", "New Hampshire": "NH",
		"New Jersey": "NJ", "New Mexico": "NM", "New York": "NY",
		"North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH",
		"Oklahoma": "OK", "Oregon": "OR", "Pennsylvania": "PA",
		"Rhode Island": "RI", "South Carolina": "SC", "South Dakota": "SD",
		"Tennessee": "TN", "Texas": "TX", "Utah": "UT", "Vermont": "VT",
		"Virginia": "VA", "Washington": "WA", "West Virginia": "WV",
		"Wisconsin": "WI", "Wyoming": "WY",
		"American Samoa": "AS", "Guam": "GU", "Northern Mariana Islands": "MP",
		"Puerto Rico": "PR", "Virgin Islands": "VI",
	}
}

var usStateName map[string]string

func init() {
	usStateName = make(map[string]string, len(usStateAbbr))
	for name, abbr := range usStateAbbr {
		usStateName[abbr] = name
	}
}

// USStateName - convert a two-letter state code back to the full name.
func USStateName(abbr string) (string, error) {
	name, ok := usStateName[abbr]
	if !ok {
		return "", fmt.Errorf("unknown US state code: %q", abbr)
	}
	return name, nil
}
