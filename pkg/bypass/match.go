package bypass

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/miekg/dns"
)

// ParseDirective splits a line produced by WriteDirectives back into its
// domain and set name.
func ParseDirective(line string) (name, setName string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), "nftset=/")
	if !found {
		return "", "", false
	}
	name, rest, found = strings.Cut(rest, "/")
	if !found || name == "" {
		return "", "", false
	}
	setName, found = strings.CutPrefix(rest, "4#inet#fw4#")
	if !found || setName == "" {
		return "", "", false
	}
	return name, setName, true
}

// ReadDirectives collects the domains of every directive in r that targets
// setName. Other lines are ignored.
func ReadDirectives(r io.Reader, setName string) (*domain.DomainSet, error) {
	set := domain.NewDomainSet()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name, target, ok := ParseDirective(scanner.Text())
		if ok && target == setName {
			set.Add(name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read directives: %w", err)
	}
	return set, nil
}

// Match reports the bypass entry that dnsmasq would apply to a query for
// name: the name itself or its closest listed parent domain.
func Match(set *domain.DomainSet, name string) (string, bool) {
	name = strings.TrimSuffix(name, ".")
	for _, off := range dns.Split(name) {
		if candidate := name[off:]; set.Has(candidate) {
			return candidate, true
		}
	}
	return "", false
}
