package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidPipeline = errors.New("invalid pipeline configuration")

type ResourceKind int

const (
	// KindRuleSet is a YAML document holding a "payload" list of rule entries.
	KindRuleSet ResourceKind = iota
	// KindRuleLines is a line-oriented rule list, one "- 'domain'" entry per line.
	KindRuleLines
	// KindDirect lists domains that are already routed directly, one per line.
	KindDirect
	// KindAdBlock is a ready-made dnsmasq ad-block config, merged verbatim.
	KindAdBlock
)

func (k ResourceKind) String() string {
	switch k {
	case KindRuleSet:
		return "ruleset"
	case KindRuleLines:
		return "lines"
	case KindDirect:
		return "direct"
	case KindAdBlock:
		return "adblock"
	default:
		return "unknown"
	}
}

// Resource is a named remote file. Name doubles as the local file name.
type Resource struct {
	Name string
	URL  string
	Kind ResourceKind
}

// DefaultResources returns a fresh copy of the built-in fetch table.
func DefaultResources() []Resource {
	const (
		blackmatrix  = "https://raw.githubusercontent.com/blackmatrix7/ios_rule_script/master/rule/Clash/"
		loyalsoldier = "https://raw.githubusercontent.com/Loyalsoldier/clash-rules/release/"
	)
	return []Resource{
		{Name: "anti-ad.conf", URL: "https://anti-ad.net/anti-ad-for-dnsmasq.conf", Kind: KindAdBlock},
		{Name: "Private_DIRECT.yaml", URL: "https://raw.githubusercontent.com/Finntaro/PrivateClashRule/main/Private_DIRECT.yaml", Kind: KindRuleSet},
		{Name: "WeChat.yaml", URL: blackmatrix + "WeChat/WeChat.yaml", Kind: KindRuleSet},
		{Name: "Oracle.yaml", URL: blackmatrix + "Oracle/Oracle.yaml", Kind: KindRuleSet},
		{Name: "Epic.yaml", URL: blackmatrix + "Epic/Epic.yaml", Kind: KindRuleSet},
		{Name: "SteamCN.yaml", URL: blackmatrix + "SteamCN/SteamCN.yaml", Kind: KindRuleSet},
		{Name: "Bing.yaml", URL: blackmatrix + "Bing/Bing.yaml", Kind: KindRuleSet},
		{Name: "Microsoft.yaml", URL: blackmatrix + "Microsoft/Microsoft.yaml", Kind: KindRuleSet},
		{Name: "icloud.txt", URL: loyalsoldier + "icloud.txt", Kind: KindRuleLines},
		{Name: "apple.txt", URL: loyalsoldier + "apple.txt", Kind: KindRuleLines},
		{Name: "private.txt", URL: loyalsoldier + "private.txt", Kind: KindRuleLines},
		{Name: "direct.txt", URL: loyalsoldier + "direct.txt", Kind: KindDirect},
	}
}

// Pipeline is the configuration of a single build run. It is passed by value
// and never modified once the run starts.
type Pipeline struct {
	Resources    []Resource
	BypassFile   string
	CombinedFile string
	SetName      string
	FetchTimeout time.Duration
	FetchRate    float64
	UserAgent    string
	// Offline skips the fetch stage and works from files already on disk.
	Offline bool
	Sorted  bool
}

// ByKind returns the resources of the given kind in declaration order.
func (p Pipeline) ByKind(kind ResourceKind) []Resource {
	var out []Resource
	for _, r := range p.Resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (p Pipeline) Validate() error {
	if err := ValidateSetName(p.SetName); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	if p.BypassFile == "" || p.CombinedFile == "" {
		return fmt.Errorf("%w: output file names must be set", ErrInvalidPipeline)
	}
	if p.BypassFile == p.CombinedFile {
		return fmt.Errorf("%w: bypass and combined outputs must differ", ErrInvalidPipeline)
	}
	if n := len(p.ByKind(KindDirect)); n > 1 {
		return fmt.Errorf("%w: %d direct lists declared, at most one allowed", ErrInvalidPipeline, n)
	}
	if n := len(p.ByKind(KindAdBlock)); n > 1 {
		return fmt.Errorf("%w: %d ad-block configs declared, at most one allowed", ErrInvalidPipeline, n)
	}
	seen := make(map[string]struct{}, len(p.Resources))
	for _, r := range p.Resources {
		if r.Name == "" || strings.ContainsAny(r.Name, `/\`) {
			return fmt.Errorf("%w: invalid resource name %q", ErrInvalidPipeline, r.Name)
		}
		if r.Name == p.BypassFile || r.Name == p.CombinedFile {
			return fmt.Errorf("%w: resource %s collides with an output file", ErrInvalidPipeline, r.Name)
		}
		if _, ok := seen[r.Name]; ok {
			return fmt.Errorf("%w: duplicate resource %s", ErrInvalidPipeline, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}
