package analytics

import (
	"sort"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// Dimension describes how one breakdown array is folded into groups.
type Dimension[E any] struct {
	Name models.Dimension

	// Entries selects the breakdown entries of a campaign. A nil result is skipped.
	Entries func(c *models.Campaign) []E

	// Key extracts the grouping key of an entry.
	Key func(e E) models.GroupKey

	// Contribute returns the additive fields an entry adds to its group.
	Contribute func(c *models.Campaign, e E) models.Totals

	// Attributes are descriptive fields kept from the first entry of a group. Optional.
	Attributes func(e E) map[string]string
}

// GroupSet is the result of a grouping pass. Groups keep first-insertion order until
// sorted explicitly.
type GroupSet struct {
	dimension models.Dimension
	groups    []*models.AggregatedGroup
	index     map[models.GroupKey]int
}

func newGroupSet(dim models.Dimension) *GroupSet {
	return &GroupSet{
		dimension: dim,
		index:     make(map[models.GroupKey]int),
	}
}

// GroupBy folds the breakdown entries of every campaign into one group per key.
// Derived metrics are computed once, after all entries are summed.
func GroupBy[E any](campaigns []models.Campaign, dim Dimension[E]) *GroupSet {
	set := newGroupSet(dim.Name)
	for i := range campaigns {
		c := &campaigns[i]
		for _, e := range dim.Entries(c) {
			key := dim.Key(e)
			g, ok := set.lookup(key)
			if !ok {
				var attrs map[string]string
				if dim.Attributes != nil {
					attrs = dim.Attributes(e)
				}
				g = set.insert(key, attrs)
			}
			g.Totals.Add(dim.Contribute(c, e))
			g.Contributors++
		}
	}
	set.Finalize()
	return set
}

func (s *GroupSet) lookup(key models.GroupKey) (*models.AggregatedGroup, bool) {
	i, ok := s.index[key]
	if !ok {
		return nil, false
	}
	return s.groups[i], true
}

func (s *GroupSet) insert(key models.GroupKey, attrs map[string]string) *models.AggregatedGroup {
	g := &models.AggregatedGroup{
		Key:        key,
		Label:      key.String(),
		Attributes: attrs,
	}
	s.index[key] = len(s.groups)
	s.groups = append(s.groups, g)
	return g
}

// Finalize recomputes derived metrics of every group from its summed totals.
func (s *GroupSet) Finalize() {
	for _, g := range s.groups {
		g.Derived = Derive(g.Totals)
	}
}

// Dimension returns the dimension the set was built from.
func (s *GroupSet) Dimension() models.Dimension { return s.dimension }

// Len returns the number of groups.
func (s *GroupSet) Len() int { return len(s.groups) }

// Get returns the group for key.
func (s *GroupSet) Get(key models.GroupKey) (*models.AggregatedGroup, bool) {
	return s.lookup(key)
}

// Find returns the first group whose primary key part equals primary.
func (s *GroupSet) Find(primary string) (*models.AggregatedGroup, bool) {
	for _, g := range s.groups {
		if g.Key.Primary == primary {
			return g, true
		}
	}
	return nil, false
}

// Groups returns copies of the groups in their current order.
func (s *GroupSet) Groups() []models.AggregatedGroup {
	out := make([]models.AggregatedGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, *g)
	}
	return out
}

// Totals sums the additive fields across all groups. With Contribute rules that only
// copy entry fields this equals the sum over all contributing entries.
func (s *GroupSet) Totals() models.AggregatedGroup {
	total := models.AggregatedGroup{
		Key:   models.GroupKey{Dimension: s.dimension, Primary: "total"},
		Label: "Total",
	}
	for _, g := range s.groups {
		total.Totals.Add(g.Totals)
		total.Contributors += g.Contributors
	}
	total.Derived = Derive(total.Totals)
	return total
}

// SortBy orders the groups by metric. Ties keep their previous relative order.
func (s *GroupSet) SortBy(m models.Metric, desc bool) *GroupSet {
	sort.SliceStable(s.groups, func(i, j int) bool {
		a, b := s.groups[i].Value(m), s.groups[j].Value(m)
		if desc {
			return a > b
		}
		return a < b
	})
	s.reindex()
	return s
}

// Top returns the n groups with the highest metric without reordering the set.
func (s *GroupSet) Top(m models.Metric, n int) []models.AggregatedGroup {
	out := s.Groups()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value(m) > out[j].Value(m) })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Filter returns a new set holding the groups that satisfy keep.
func (s *GroupSet) Filter(keep func(g *models.AggregatedGroup) bool) *GroupSet {
	out := newGroupSet(s.dimension)
	for _, g := range s.groups {
		if keep(g) {
			cp := *g
			out.index[cp.Key] = len(out.groups)
			out.groups = append(out.groups, &cp)
		}
	}
	return out
}

func (s *GroupSet) reindex() {
	for i, g := range s.groups {
		s.index[g.Key] = i
	}
}

// MetricValues extracts one metric from every group, in order.
func MetricValues(groups []models.AggregatedGroup, m models.Metric) []float64 {
	out := make([]float64, len(groups))
	for i := range groups {
		out[i] = groups[i].Value(m)
	}
	return out
}

// Rollup merges the groups of s under coarser keys, for example demographic groups by age
// group alone. Totals are summed and ratios derived again from the merged totals.
// Attributes are not carried over.
func (s *GroupSet) Rollup(key func(g *models.AggregatedGroup) models.GroupKey) *GroupSet {
	out := newGroupSet(s.dimension)
	for _, g := range s.groups {
		k := key(g)
		dst, ok := out.lookup(k)
		if !ok {
			dst = out.insert(k, nil)
		}
		dst.Totals.Add(g.Totals)
		dst.Contributors += g.Contributors
	}
	out.Finalize()
	return out
}
