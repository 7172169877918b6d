package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Region is a jurisdiction code partitioning the question bank, e.g. "MY".
type Region string

// ParseRegion normalizes a raw region code.
func ParseRegion(raw string) Region {
	return Region(strings.ToUpper(strings.TrimSpace(raw)))
}

// RegionSet is the configured set of supported regions.
type RegionSet struct {
	codes map[Region]struct{}
}

// NewRegionSet builds a set from configured codes; blanks are ignored.
func NewRegionSet(codes ...string) RegionSet {
	set := RegionSet{codes: make(map[Region]struct{}, len(codes))}
	for _, c := range codes {
		r := ParseRegion(c)
		if r == "" {
			continue
		}
		set.codes[r] = struct{}{}
	}
	return set
}

// Check returns ErrUnknownRegion if region is not configured.
func (s RegionSet) Check(region Region) error {
	if _, ok := s.codes[region]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, string(region))
	}
	return nil
}

// Len returns the number of configured regions.
func (s RegionSet) Len() int {
	return len(s.codes)
}

// List returns the configured regions in lexical order.
func (s RegionSet) List() []Region {
	out := make([]Region, 0, len(s.codes))
	for r := range s.codes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
