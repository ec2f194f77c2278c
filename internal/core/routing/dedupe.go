package routing

import (
	"slices"
	"strconv"

	"github.com/mbenedetti/percorsi/internal/core/domain"
)

// Policy selects the equivalence relation that collapses duplicate
// paths. The two relations are deliberately different: all-targets
// enumeration keeps distinct orderings apart, single-target enumeration
// collapses them.
type Policy int

const (
	// PolicySequence treats two paths as duplicates only when their
	// node sequences are exactly equal, order included.
	PolicySequence Policy = iota
	// PolicyNodeSet treats two paths as duplicates when they visit the
	// same unordered node set, even if traversal order differs.
	PolicyNodeSet
)

// collector accumulates discovered paths into a RouteSet, dropping
// duplicates under its policy while preserving first-seen order. A
// positive limit stops collection once that many distinct routes exist.
type collector struct {
	policy Policy
	limit  int
	seen   map[string]struct{}
	set    *domain.RouteSet
}

func newCollector(policy Policy, limit int) *collector {
	return &collector{
		policy: policy,
		limit:  limit,
		seen:   make(map[string]struct{}),
		set:    domain.NewRouteSet(),
	}
}

// add records p unless an equivalent path was seen before. It returns
// false once the collector is full, which stops the search.
func (c *collector) add(p domain.Path) bool {
	if c.full() {
		return false
	}
	key := c.key(p)
	if _, dup := c.seen[key]; dup {
		return true
	}
	c.seen[key] = struct{}{}
	c.set.Append(p)
	return !c.full()
}

func (c *collector) full() bool {
	return c.limit > 0 && c.set.Len() >= c.limit
}

func (c *collector) key(p domain.Path) string {
	switch c.policy {
	case PolicyNodeSet:
		ids := make([]int64, len(p))
		for i, id := range p {
			ids[i] = int64(id)
		}
		slices.Sort(ids)
		return joinIDs(ids)
	default:
		ids := make([]int64, len(p))
		for i, id := range p {
			ids[i] = int64(id)
		}
		return joinIDs(ids)
	}
}

func joinIDs(ids []int64) string {
	b := make([]byte, 0, len(ids)*8)
	for i, id := range ids {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, id, 10)
	}
	return string(b)
}
