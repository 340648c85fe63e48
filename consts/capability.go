package consts

// rollupExcluded - ISO2 codes of countries that report exclusively through
// finer-grained files. Their country-level rows never enter their own
// displayed sum, otherwise the coarse and fine numbers would be presented as
// if they were additive. This set is fixed configuration, not inferred.
var rollupExcluded = map[string]bool{
	"US": true,
	"CA": true,
}

// RollupExcluded reports whether a country's own row is excluded from its
// displayed rollup.
func RollupExcluded(iso2 string) bool {
	return rollupExcluded[iso2]
}

// noSubNationalRecovered - ISO2 codes of countries whose sub-national rows
// never report the recovered metric. Published views omit the metric for
// these rows instead of showing a misleading zero or redaction sentinel.
var noSubNationalRecovered = map[string]bool{
	"US": true,
	"CA": true,
}

// MetricCollected reports whether a metric is collected for rows of the
// given country at the given granularity.
func MetricCollected(metric, iso2 string, subNational bool) bool {
	if metric == "recovered" && subNational && noSubNationalRecovered[iso2] {
		return false
	}
	return true
}
