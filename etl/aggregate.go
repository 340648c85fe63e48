package etl

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/consts"
	"github.com/openepidata/graph-etl/schema"
)

// Node - one geography in the hierarchy: its own directly-reported series
// plus the children one level down (country owns states, state owns
// counties).
type Node struct {
	Location schema.Location
	Points   map[string]schema.MetricSet
	Children map[string]*Node
}

func newNode(loc schema.Location) *Node {
	return &Node{
		Location: loc,
		Points:   make(map[string]schema.MetricSet),
		Children: make(map[string]*Node),
	}
}

// Direct - the directly-reported value of one metric for one day.
func (n *Node) Direct(date, metric string) (int64, bool) {
	m, ok := n.Points[date]
	if !ok {
		return 0, false
	}
	v, ok := m[metric]
	return v, ok
}

// Tree - the spatial hierarchy built by folding every source file's
// normalized rows together. Countries are keyed by ISO3.
type Tree struct {
	Countries map[string]*Node

	fileLatest map[string]string
}

// NewTree - an empty hierarchy.
func NewTree() *Tree {
	return &Tree{
		Countries:  make(map[string]*Node),
		fileLatest: make(map[string]string),
	}
}

// AddFile merges one file's normalized rows into the tree and records the
// file's own latest date.
func (t *Tree) AddFile(source string, rows []NormalizedRow, latest string) {
	for _, row := range rows {
		t.Add(row)
	}
	if latest != "" {
		t.fileLatest[source] = latest
	}
	log.WithFields(log.Fields{"prefix": logPrefix, "source": source, "rows": len(rows), "latest": latest}).Debug("merged file into hierarchy")
}

// Add merges a single normalized row. Re-adding the same row is idempotent:
// per (node, date, metric) the new value replaces the stale one, and merging
// across files is a per-metric union, never an add.
func (t *Tree) Add(row NormalizedRow) {
	node := t.resolve(row.Location)
	for _, p := range row.Points {
		m, ok := node.Points[p.Date]
		if !ok {
			// never alias the row's set, later merges mutate the node's copy
			node.Points[p.Date] = p.Metrics.Clone()
			continue
		}
		for metric, v := range p.Metrics {
			m[metric] = v
		}
	}
}

// resolve walks country then state then county, creating placeholder parents
// for children discovered before any parent row.
func (t *Tree) resolve(loc schema.Location) *Node {
	countryLoc := schema.Location{
		CountryName: loc.CountryName,
		ISO2:        loc.ISO2,
		ISO3:        loc.ISO3,
	}
	country, ok := t.Countries[loc.ISO3]
	if !ok {
		country = newNode(countryLoc)
		t.Countries[loc.ISO3] = country
	}
	node := country
	if loc.IsCountry() {
		t.adopt(node, loc)
		return node
	}

	if loc.State != "" {
		stateLoc := countryLoc
		stateLoc.State = loc.State
		state, ok := node.Children[loc.State]
		if !ok {
			state = newNode(stateLoc)
			node.Children[loc.State] = state
		}
		node = state
	}

	if loc.County != "" {
		// keyed by name, not FIPS: every source carries the name, so both
		// county files land on the same node
		key := loc.County
		county, ok := node.Children[key]
		if !ok {
			county = newNode(loc)
			node.Children[key] = county
		}
		node = county
	}

	t.adopt(node, loc)
	return node
}

// adopt copies descriptive attributes a later source may add onto an already
// created node. The geography tuple, and so the identifier, never changes.
func (t *Tree) adopt(node *Node, loc schema.Location) {
	if node.Location.Latitude == 0 && node.Location.Longitude == 0 {
		node.Location.Latitude = loc.Latitude
		node.Location.Longitude = loc.Longitude
	}
	if node.Location.Population == 0 {
		node.Location.Population = loc.Population
	}
	if node.Location.FIPS == "" {
		node.Location.FIPS = loc.FIPS
	}
}

// LatestDate - the single latest date the whole dataset is current to. When
// files disagree the earlier wins: the hierarchy is only as current as its
// slowest input.
func (t *Tree) LatestDate() string {
	latest := ""
	for _, d := range t.fileLatest {
		if latest == "" || d < latest {
			latest = d
		}
	}
	return latest
}

// Effective - the displayed metric set of a node for one day: the direct
// report when present, otherwise the sum of the children. The two are never
// counted together. Countries in the fixed exclusion set never contribute
// their own row to the displayed sum.
func (t *Tree) Effective(n *Node, date string) schema.MetricSet {
	out := schema.MetricSet{}
	excludedSelf := n.Location.IsCountry() && consts.RollupExcluded(n.Location.ISO2) && len(n.Children) > 0

	for _, metric := range []string{schema.MetricConfirmed, schema.MetricDeaths, schema.MetricRecovered} {
		if !excludedSelf {
			if v, ok := n.Direct(date, metric); ok {
				out[metric] = v
				continue
			}
		}
		sum := int64(0)
		found := false
		for _, child := range n.Children {
			if v, ok := t.Effective(child, date)[metric]; ok {
				sum += v
				found = true
			}
		}
		if found {
			out[metric] = sum
		}
	}
	return out
}

// Walk visits every node depth first, countries in ISO3 order and children
// in key order so the output is deterministic.
func (t *Tree) Walk(fn func(n *Node)) {
	countries := make([]string, 0, len(t.Countries))
	for k := range t.Countries {
		countries = append(countries, k)
	}
	sort.Strings(countries)
	for _, k := range countries {
		walkNode(t.Countries[k], fn)
	}
}

func walkNode(n *Node, fn func(n *Node)) {
	fn(n)
	keys := make([]string, 0, len(n.Children))
	for k := range n.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		walkNode(n.Children[k], fn)
	}
}

// Dates - the sorted union of the node's own dates and all descendants'.
func (t *Tree) Dates(n *Node) []string {
	set := make(map[string]bool)
	collectDates(n, set)
	dates := make([]string, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

func collectDates(n *Node, set map[string]bool) {
	for d := range n.Points {
		set[d] = true
	}
	for _, c := range n.Children {
		collectDates(c, set)
	}
}

// Rollups flattens the tree into archive documents of effective values, one
// per (node, date).
func (t *Tree) Rollups(runID string) []schema.RollupDoc {
	now := time.Now().UTC().Unix()
	docs := make([]schema.RollupDoc, 0)
	t.Walk(func(n *Node) {
		for _, date := range t.Dates(n) {
			metrics := t.Effective(n, date)
			if len(metrics) == 0 {
				continue
			}
			docs = append(docs, schema.RollupDoc{
				RunID:       runID,
				SubmitterID: n.Location.SubmitterID(),
				CountryName: n.Location.CountryName,
				ISO2:        n.Location.ISO2,
				ISO3:        n.Location.ISO3,
				State:       n.Location.State,
				County:      n.Location.County,
				Date:        date,
				Metrics:     metrics,
				UpdateTime:  now,
			})
		}
	})
	return docs
}
