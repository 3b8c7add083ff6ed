package args

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

type StringValue struct {
	val string
	p   *string
	f   func(val string) (string, error)
}

func NewStringValueFunc(val string, p *string, f func(val string) (string, error)) *StringValue {
	*p = val
	return &StringValue{val: val, p: p, f: f}
}

func (s *StringValue) Set(val string) error {
	v, err := s.f(val)
	if err != nil {
		return err
	}
	s.val = v
	*s.p = v
	return nil
}

func (s *StringValue) Type() string {
	return "string"
}

func (s *StringValue) String() string { return s.val }

// NewSetNameValue rejects set names that would corrupt the generated directives.
func NewSetNameValue(val string, p *string) *StringValue {
	return NewStringValueFunc(val, p, func(s string) (string, error) {
		s = strings.TrimSpace(s)
		return s, domain.ValidateSetName(s)
	})
}

// RateValue parses a request rate given either as a bare number of requests
// per second or with a "/s" or "/m" suffix. changed, if not nil, is set once
// a value has been parsed.
type RateValue struct {
	p       *float64
	changed *bool
}

func NewRateValue(p *float64, changed *bool) *RateValue {
	return &RateValue{p: p, changed: changed}
}

func (r *RateValue) Set(val string) error {
	perSecond, err := parseRate(val)
	if err != nil {
		return err
	}
	*r.p = perSecond
	if r.changed != nil {
		*r.changed = true
	}
	return nil
}

func (r *RateValue) Type() string {
	return "rate"
}

func (r *RateValue) String() string {
	if r.p == nil || *r.p == 0 {
		return ""
	}
	return strconv.FormatFloat(*r.p, 'g', -1, 64) + "/s"
}

func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	divisor := 1.0
	switch {
	case strings.HasSuffix(s, "/s"):
		s = strings.TrimSuffix(s, "/s")
	case strings.HasSuffix(s, "/m"):
		s = strings.TrimSuffix(s, "/m")
		divisor = 60
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate: %s", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("rate must not be negative: %s", s)
	}
	return n / divisor, nil
}

// ResourceNames collects every remaining positional argument as a resource name.
func ResourceNames(args []string, names *[]string) ([]string, error) {
	for _, a := range args {
		a = strings.TrimSpace(a)
		if a == "" || strings.ContainsAny(a, `/\`) {
			return args, fmt.Errorf("invalid resource name: %q", a)
		}
		*names = append(*names, a)
	}
	return nil, nil
}
