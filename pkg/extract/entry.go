package extract

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one item of a rule set payload. It is either a StringEntry or an
// OtherEntry; only string entries can carry a domain.
type Entry interface {
	entry()
}

// StringEntry is a payload item that decoded as a YAML string.
type StringEntry string

// OtherEntry is any payload item that is not a string: numbers, booleans,
// nulls, nested lists or mappings. Tag holds the resolved YAML tag.
type OtherEntry struct {
	Tag string
}

func (StringEntry) entry() {}
func (OtherEntry) entry()  {}

const (
	prefixDomain       = "DOMAIN,"
	prefixDomainSuffix = "DOMAIN-SUFFIX,"
	prefixWildcard     = "+."
)

// RuleDomain returns the domain named by e. Recognised forms are
// "DOMAIN,<d>[,...]", "DOMAIN-SUFFIX,<d>[,...]" and "+.<d>"; everything else,
// including every OtherEntry, yields false.
func RuleDomain(e Entry) (string, bool) {
	switch e := e.(type) {
	case StringEntry:
		text := string(e)
		switch {
		case strings.HasPrefix(text, prefixDomain), strings.HasPrefix(text, prefixDomainSuffix):
			_, rest, _ := strings.Cut(text, ",")
			d, _, _ := strings.Cut(rest, ",")
			return strings.TrimSpace(d), true
		case strings.HasPrefix(text, prefixWildcard):
			return strings.TrimPrefix(text, prefixWildcard), true
		}
	}
	return "", false
}

type entries []Entry

func (es *entries) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" {
			return nil
		}
		fallthrough
	default:
		return fmt.Errorf("line %d: payload must be a list, got %s", value.Line, value.ShortTag())
	}
	out := make(entries, 0, len(value.Content))
	for _, n := range value.Content {
		out = append(out, entryFromNode(n))
	}
	*es = out
	return nil
}

func entryFromNode(n *yaml.Node) Entry {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		return StringEntry(n.Value)
	}
	return OtherEntry{Tag: n.ShortTag()}
}

type ruleSet struct {
	Payload entries `yaml:"payload"`
}

// ParseRuleSet decodes a YAML mapping and returns the entries of its
// "payload" list. A document without a payload yields no entries.
func ParseRuleSet(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	var rs ruleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	return rs.Payload, nil
}
