package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResources(t *testing.T) {
	resources := DefaultResources()
	require.Len(t, resources, 12)

	p := Pipeline{Resources: resources}
	assert.Len(t, p.ByKind(KindRuleSet), 7)
	assert.Len(t, p.ByKind(KindRuleLines), 3)
	assert.Len(t, p.ByKind(KindDirect), 1)
	assert.Len(t, p.ByKind(KindAdBlock), 1)
	assert.Equal(t, "direct.txt", p.ByKind(KindDirect)[0].Name)
	assert.Equal(t, "anti-ad.conf", p.ByKind(KindAdBlock)[0].Name)

	t.Run("returns a fresh copy", func(t *testing.T) {
		resources[0].Name = "changed"
		assert.Equal(t, "anti-ad.conf", DefaultResources()[0].Name)
	})
}

func TestResourceKindString(t *testing.T) {
	assert.Equal(t, "ruleset", KindRuleSet.String())
	assert.Equal(t, "lines", KindRuleLines.String())
	assert.Equal(t, "direct", KindDirect.String())
	assert.Equal(t, "adblock", KindAdBlock.String())
	assert.Equal(t, "unknown", ResourceKind(42).String())
}

func TestPipelineValidate(t *testing.T) {
	valid := func() Pipeline {
		return Pipeline{
			Resources:    DefaultResources(),
			BypassFile:   DefaultBypassFile,
			CombinedFile: DefaultCombinedFile,
			SetName:      DefaultSetName,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		errMsg string
	}{
		{"empty set name", func(p *Pipeline) { p.SetName = "" }, "invalid nftables set name"},
		{"missing bypass file", func(p *Pipeline) { p.BypassFile = "" }, "output file names must be set"},
		{"same outputs", func(p *Pipeline) { p.CombinedFile = p.BypassFile }, "must differ"},
		{"two direct lists", func(p *Pipeline) {
			p.Resources = append(p.Resources, Resource{Name: "more.txt", Kind: KindDirect})
		}, "2 direct lists"},
		{"two adblock configs", func(p *Pipeline) {
			p.Resources = append(p.Resources, Resource{Name: "more.conf", Kind: KindAdBlock})
		}, "2 ad-block configs"},
		{"path in resource name", func(p *Pipeline) {
			p.Resources = append(p.Resources, Resource{Name: "../etc/passwd", Kind: KindRuleLines})
		}, "invalid resource name"},
		{"collides with output", func(p *Pipeline) {
			p.Resources = append(p.Resources, Resource{Name: DefaultBypassFile, Kind: KindRuleLines})
		}, "collides with an output file"},
		{"duplicate resource", func(p *Pipeline) {
			p.Resources = append(p.Resources, Resource{Name: "apple.txt", Kind: KindRuleLines})
		}, "duplicate resource apple.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPipeline)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
