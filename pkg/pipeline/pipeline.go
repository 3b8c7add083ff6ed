package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rudd3r/nftroute/pkg/bypass"
	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/Rudd3r/nftroute/pkg/extract"
	"github.com/Rudd3r/nftroute/pkg/fetch"
)

type Fetcher interface {
	Fetch(ctx context.Context, resources []domain.Resource) *fetch.Report
}

type Result struct {
	Fetch      *fetch.Report
	Extracted  int
	Direct     int
	Bypass     int
	Directives int
	// BuildErr and MergeErr record stage failures that did not stop the run.
	BuildErr error
	MergeErr error
}

// Run executes fetch, extract, filter, build and merge in that order. A
// failing stage only reduces what later stages see; Run itself returns an
// error for an invalid configuration or a cancelled context.
func Run(ctx context.Context, log *slog.Logger, storage domain.Storage, fetcher Fetcher, cfg domain.Pipeline) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{}

	if cfg.Offline {
		log.Info("offline run, using resources already on disk")
	} else {
		res.Fetch = fetcher.Fetch(ctx, cfg.Resources)
		log.Info("fetch finished", "fetched", len(res.Fetch.Fetched), "failed", len(res.Fetch.Failed))
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pipeline interrupted after fetch: %w", err)
	}

	extractor := extract.NewExtractor(log, storage)
	extracted := extractor.Extract(cfg.ByKind(domain.KindRuleSet), cfg.ByKind(domain.KindRuleLines))
	res.Extracted = extracted.Len()

	direct := domain.NewDomainSet()
	for _, r := range cfg.ByKind(domain.KindDirect) {
		direct.Union(extractor.Direct(r))
	}
	res.Direct = direct.Len()

	filtered := bypass.Filter(extracted, direct)
	res.Bypass = filtered.Len()
	log.Info("domains filtered", "extracted", res.Extracted, "direct", res.Direct, "bypass", res.Bypass)

	bypassName := cfg.BypassFile
	res.Directives, res.BuildErr = bypass.Build(log, storage, cfg.BypassFile, filtered, cfg.SetName, cfg.Sorted)
	if res.BuildErr != nil {
		// never merge a bypass file left over from an earlier run
		bypassName = ""
	}

	var adblockName string
	if adblock := cfg.ByKind(domain.KindAdBlock); len(adblock) > 0 {
		adblockName = adblock[0].Name
	}
	res.MergeErr = bypass.MergeFiles(log, storage, adblockName, bypassName, cfg.CombinedFile)

	return res, nil
}
