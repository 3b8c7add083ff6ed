package domain

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"unicode"
)

// ValidDomain reports whether s can be stored in a DomainSet: non-empty and
// free of '/', '#' and whitespace, the characters that would split a
// directive's fields. No further DNS syntax checks are applied.
func ValidDomain(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool {
		return r == '/' || r == '#' || unicode.IsSpace(r)
	})
}

// DomainSet is an unordered set of bare host names. Names are kept exactly
// as received; no case folding or trailing dot normalisation is applied.
type DomainSet struct {
	m map[string]struct{}
}

func NewDomainSet(domains ...string) *DomainSet {
	s := &DomainSet{m: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		s.Add(d)
	}
	return s
}

// Add inserts d and reports whether it was accepted. Invalid names are
// dropped; adding a name already present is a no-op that returns true.
func (s *DomainSet) Add(d string) bool {
	if !ValidDomain(d) {
		return false
	}
	s.m[d] = struct{}{}
	return true
}

func (s *DomainSet) Has(d string) bool {
	_, ok := s.m[d]
	return ok
}

func (s *DomainSet) Len() int { return len(s.m) }

// Union adds every member of other to s.
func (s *DomainSet) Union(other *DomainSet) {
	for d := range other.m {
		s.m[d] = struct{}{}
	}
}

// Difference returns a new set holding the members of s not present in other.
func (s *DomainSet) Difference(other *DomainSet) *DomainSet {
	out := &DomainSet{m: make(map[string]struct{}, len(s.m))}
	for d := range s.m {
		if other != nil && other.Has(d) {
			continue
		}
		out.m[d] = struct{}{}
	}
	return out
}

// All iterates the set in unspecified order.
func (s *DomainSet) All() iter.Seq[string] {
	return maps.Keys(s.m)
}

func (s *DomainSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s.m))
}

var ErrInvalidSetName = errors.New("invalid nftables set name")

// ValidateSetName checks that name can be embedded in a directive without
// breaking the dnsmasq field separators.
func ValidateSetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSetName)
	}
	if strings.ContainsAny(name, "#/,\r\n\t ") {
		return fmt.Errorf("%w: %q contains a separator character", ErrInvalidSetName, name)
	}
	return nil
}

// Directive renders the dnsmasq line that routes d through the inet fw4 set.
func Directive(d, setName string) string {
	return "nftset=/" + d + "/4#inet#fw4#" + setName
}
