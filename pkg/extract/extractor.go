package extract

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

// Extractor turns fetched rule resources into domain sets. Resources that
// are missing or cannot be parsed contribute nothing and are only logged.
type Extractor struct {
	log     *slog.Logger
	storage domain.Storage
}

func NewExtractor(log *slog.Logger, storage domain.Storage) *Extractor {
	return &Extractor{log: log, storage: storage}
}

// Extract returns the union of domains found in the rule set and rule line
// resources.
func (e *Extractor) Extract(ruleSets, ruleLines []domain.Resource) *domain.DomainSet {
	set := domain.NewDomainSet()
	for _, res := range ruleSets {
		e.collect(set, res, RuleSetDomains)
	}
	for _, res := range ruleLines {
		e.collect(set, res, RuleLineDomains)
	}
	return set
}

// Direct loads the list of domains that already bypass the firewall set.
func (e *Extractor) Direct(res domain.Resource) *domain.DomainSet {
	set := domain.NewDomainSet()
	e.collect(set, res, DirectDomains)
	return set
}

func (e *Extractor) collect(set *domain.DomainSet, res domain.Resource, parse func(io.Reader) ([]string, error)) {
	rc, err := e.storage.Open(res.Name)
	if err != nil {
		e.log.Error("cannot read resource", "resource", res.Name, "error", err)
		return
	}
	defer func() { _ = rc.Close() }()

	domains, err := parse(rc)
	if err != nil {
		e.log.Error("cannot parse resource", "resource", res.Name, "error", err)
		return
	}

	var added, dropped int
	for _, d := range domains {
		if set.Add(d) {
			added++
			continue
		}
		dropped++
		e.log.Debug("dropped invalid domain", "resource", res.Name, "domain", d)
	}
	e.log.Info("extracted domains", "resource", res.Name, "kind", res.Kind, "domains", added, "dropped", dropped)
}

// RuleSetDomains returns the domains named by the payload of a YAML rule set.
func RuleSetDomains(r io.Reader) ([]string, error) {
	entries, err := ParseRuleSet(r)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if d, ok := RuleDomain(entry); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// RuleLineDomains returns the domains of a line-oriented rule list.
func RuleLineDomains(r io.Reader) ([]string, error) {
	var out []string
	err := ScanLines(r, func(line string) {
		if d, ok := RuleLine(line); ok {
			out = append(out, d)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("rule lines: %w", err)
	}
	return out, nil
}

// DirectDomains returns every non-blank, non-comment line of r verbatim.
func DirectDomains(r io.Reader) ([]string, error) {
	var out []string
	if err := ScanLines(r, func(line string) { out = append(out, line) }); err != nil {
		return nil, fmt.Errorf("direct list: %w", err)
	}
	return out, nil
}
