package consts

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownCountryError - a country name that no entry of the normalization
// table resolves. Fatal for the run: a silently defaulted ISO code would
// corrupt every downstream aggregation key.
type UnknownCountryError struct {
	Name string
}

func (e *UnknownCountryError) Error() string {
	return fmt.Sprintf("unknown country name: %q", e.Name)
}

// CountryCode - ISO2/ISO3 pair for one country.
type CountryCode struct {
	ISO2 string
	ISO3 string
}

var countryCodes map[string]CountryCode

var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func init() {
	countryCodes = make(map[string]CountryCode)

	add := func(code CountryCode, names ...string) {
		for _, n := range names {
			countryCodes[countryKey(n)] = code
		}
	}

	add(CountryCode{"US", "USA"}, "US", "USA", "United States", "United States of America")
	add(CountryCode{"CA", "CAN"}, "Canada")
	add(CountryCode{"CN", "CHN"}, "China", "Mainland China")
	add(CountryCode{"TW", "TWN"}, "Taiwan", "Taiwan*", "Taipei and environs")
	add(CountryCode{"KR", "KOR"}, "Korea, South", "South Korea", "Republic of Korea")
	add(CountryCode{"KP", "PRK"}, "Korea, North", "North Korea")
	add(CountryCode{"JP", "JPN"}, "Japan")
	add(CountryCode{"VN", "VNM"}, "Vietnam", "Viet Nam")
	add(CountryCode{"IS", "ISL"}, "Iceland")
	add(CountryCode{"GB", "GBR"}, "United Kingdom", "UK")
	add(CountryCode{"FR", "FRA"}, "France")
	add(CountryCode{"DE", "DEU"}, "Germany")
	add(CountryCode{"IT", "ITA"}, "Italy")
	add(CountryCode{"ES", "ESP"}, "Spain")
	add(CountryCode{"PT", "PRT"}, "Portugal")
	add(CountryCode{"NL", "NLD"}, "Netherlands", "Holland")
	add(CountryCode{"BE", "BEL"}, "Belgium")
	add(CountryCode{"CH", "CHE"}, "Switzerland")
	add(CountryCode{"AT", "AUT"}, "Austria")
	add(CountryCode{"SE", "SWE"}, "Sweden")
	add(CountryCode{"NO", "NOR"}, "Norway")
	add(CountryCode{"DK", "DNK"}, "Denmark")
	add(CountryCode{"FI", "FIN"}, "Finland")
	add(CountryCode{"IE", "IRL"}, "Ireland", "Republic of Ireland")
	add(CountryCode{"RU", "RUS"}, "Russia", "Russian Federation")
	add(CountryCode{"UA", "UKR"}, "Ukraine")
	add(CountryCode{"PL", "POL"}, "Poland")
	add(CountryCode{"CZ", "CZE"}, "Czechia", "Czech Republic")
	add(CountryCode{"SK", "SVK"}, "Slovakia")
	add(CountryCode{"GR", "GRC"}, "Greece")
	add(CountryCode{"TR", "TUR"}, "Turkey")
	add(CountryCode{"AU", "AUS"}, "Australia")
	add(CountryCode{"NZ", "NZL"}, "New Zealand")
	add(CountryCode{"IN", "IND"}, "India")
	add(CountryCode{"PK", "PAK"}, "Pakistan")
	add(CountryCode{"BD", "BGD"}, "Bangladesh")
	add(CountryCode{"IR", "IRN"}, "Iran", "Iran (Islamic Republic of)")
	add(CountryCode{"IQ", "IRQ"}, "Iraq")
	add(CountryCode{"IL", "ISR"}, "Israel")
	add(CountryCode{"SA", "SAU"}, "Saudi Arabia")
	add(CountryCode{"AE", "ARE"}, "United Arab Emirates")
	add(CountryCode{"EG", "EGY"}, "Egypt")
	add(CountryCode{"ZA", "ZAF"}, "South Africa")
	add(CountryCode{"NG", "NGA"}, "Nigeria")
	add(CountryCode{"ET", "ETH"}, "Ethiopia")
	add(CountryCode{"KE", "KEN"}, "Kenya")
	add(CountryCode{"CD", "COD"}, "Congo (Kinshasa)", "Democratic Republic of the Congo")
	add(CountryCode{"CG", "COG"}, "Congo (Brazzaville)", "Republic of the Congo")
	add(CountryCode{"CI", "CIV"}, "Cote d'Ivoire", "Côte d'Ivoire", "Ivory Coast")
	add(CountryCode{"CV", "CPV"}, "Cabo Verde", "Cape Verde")
	add(CountryCode{"MM", "MMR"}, "Burma", "Myanmar")
	add(CountryCode{"TH", "THA"}, "Thailand")
	add(CountryCode{"MY", "MYS"}, "Malaysia")
	add(CountryCode{"SG", "SGP"}, "Singapore")
	add(CountryCode{"ID", "IDN"}, "Indonesia")
	add(CountryCode{"PH", "PHL"}, "Philippines")
	add(CountryCode{"BR", "BRA"}, "Brazil")
	add(CountryCode{"AR", "ARG"}, "Argentina")
	add(CountryCode{"CL", "CHL"}, "Chile")
	add(CountryCode{"PE", "PER"}, "Peru")
	add(CountryCode{"CO", "COL"}, "Colombia")
	add(CountryCode{"EC", "ECU"}, "Ecuador")
	add(CountryCode{"BO", "BOL"}, "Bolivia")
	add(CountryCode{"VE", "VEN"}, "Venezuela")
	add(CountryCode{"MX", "MEX"}, "Mexico")
	add(CountryCode{"CU", "CUB"}, "Cuba")
	add(CountryCode{"CW", "CUW"}, "Curacao", "Curaçao")
	add(CountryCode{"DO", "DOM"}, "Dominican Republic")
	add(CountryCode{"HT", "HTI"}, "Haiti")
	add(CountryCode{"VA", "VAT"}, "Holy See", "Vatican City")
	add(CountryCode{"MK", "MKD"}, "North Macedonia", "Macedonia")
	add(CountryCode{"MD", "MDA"}, "Moldova", "Republic of Moldova")
	add(CountryCode{"RS", "SRB"}, "Serbia")
	add(CountryCode{"XK", "XKS"}, "Kosovo")
	add(CountryCode{"BA", "BIH"}, "Bosnia and Herzegovina")
	add(CountryCode{"HR", "HRV"}, "Croatia")
	add(CountryCode{"SI", "SVN"}, "Slovenia")
	add(CountryCode{"HU", "HUN"}, "Hungary")
	add(CountryCode{"RO", "ROU"}, "Romania")
	add(CountryCode{"BG", "BGR"}, "Bulgaria")
	add(CountryCode{"EE", "EST"}, "Estonia")
	add(CountryCode{"LV", "LVA"}, "Latvia")
	add(CountryCode{"LT", "LTU"}, "Lithuania")
	add(CountryCode{"TL", "TLS"}, "Timor-Leste", "East Timor")
	add(CountryCode{"SZ", "SWZ"}, "Eswatini", "Swaziland")
}

// countryKey folds accents, drops punctuation and lower-cases the name so
// spelling variants of the same country land on the same table entry.
func countryKey(name string) string {
	folded, _, err := transform.String(accentFold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// CountryCodes resolves a free-text country name to its ISO2/ISO3 codes.
// An unresolvable name is fatal and never silently defaulted.
func CountryCodes(name string) (CountryCode, error) {
	code, ok := countryCodes[countryKey(name)]
	if !ok {
		return CountryCode{}, &UnknownCountryError{Name: name}
	}
	return code, nil
}
