package nftroute

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Rudd3r/nftroute/pkg/bypass"
	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/Rudd3r/nftroute/pkg/fetch"
	"github.com/Rudd3r/nftroute/pkg/filesystem"
	"github.com/Rudd3r/nftroute/pkg/pipeline"
	"github.com/Rudd3r/nftroute/pkg/upload"
)

// App binds the loaded configuration to the commands of the CLI.
type App struct {
	ctx context.Context
	cfg *domain.Config
	log *slog.Logger
}

func NewApp(ctx context.Context, log *slog.Logger, cfg *domain.Config) *App {
	return &App{ctx: ctx, log: log, cfg: cfg}
}

// Build runs the full fetch, extract, filter, build and merge pipeline.
func (a *App) Build(cmd *domain.CommandBuild) (*pipeline.Result, error) {
	p := a.buildPipeline(cmd)
	storage, err := a.storage(cmd.WorkDir)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewFetcher(a.log, storage, fetch.Options{
		Timeout:   p.FetchTimeout,
		UserAgent: p.UserAgent,
		Rate:      p.FetchRate,
	})
	return pipeline.Run(a.ctx, a.log, storage, fetcher, p)
}

// buildPipeline applies the command line overrides to the configured pipeline.
func (a *App) buildPipeline(cmd *domain.CommandBuild) domain.Pipeline {
	p := a.cfg.Pipeline()
	if cmd.SetName != "" {
		p.SetName = cmd.SetName
	}
	if cmd.Timeout > 0 {
		p.FetchTimeout = cmd.Timeout
	}
	if cmd.FetchRateSet {
		p.FetchRate = cmd.FetchRate
	}
	if cmd.NoSort {
		p.Sorted = false
	}
	p.Offline = cmd.Offline
	return p
}

func (a *App) fetchPipeline(cmd *domain.CommandFetch) domain.Pipeline {
	p := a.cfg.Pipeline()
	if cmd.Timeout > 0 {
		p.FetchTimeout = cmd.Timeout
	}
	if cmd.FetchRateSet {
		p.FetchRate = cmd.FetchRate
	}
	return p
}

// Fetch downloads the named resources, or all of them when no names are given.
func (a *App) Fetch(cmd *domain.CommandFetch) (*fetch.Report, error) {
	p := a.fetchPipeline(cmd)
	resources, err := selectResources(p.Resources, cmd.Names)
	if err != nil {
		return nil, err
	}

	storage, err := a.storage(cmd.WorkDir)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewFetcher(a.log, storage, fetch.Options{
		Timeout:   p.FetchTimeout,
		UserAgent: p.UserAgent,
		Rate:      p.FetchRate,
	})
	report := fetcher.Fetch(a.ctx, resources)
	return report, a.ctx.Err()
}

func (a *App) Sources(_ *domain.CommandSources) []domain.Resource {
	return a.cfg.Pipeline().Resources
}

// Upload pushes the files listed in the manifest to every router in it.
func (a *App) Upload(cmd *domain.CommandUpload) (*upload.Report, error) {
	manifestPath := cmd.Manifest
	if manifestPath == "" {
		manifestPath = a.cfg.Manifest
	}
	manifestPath, err := domain.ExpandHome(manifestPath)
	if err != nil {
		return nil, err
	}
	manifest, err := upload.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	a.log.Info("manifest loaded", "path", manifestPath, "routers", len(manifest.Routers), "mappings", len(manifest.FileMappings))
	return upload.NewUploader(a.log, upload.Options{DryRun: cmd.DryRun}).Upload(a.ctx, manifest)
}

type MatchResult struct {
	Query string
	// Entry is the bypass domain covering Query, empty when nothing matched.
	Entry string
}

// Match checks query names against the bypass config in the work directory.
func (a *App) Match(cmd *domain.CommandMatch) ([]MatchResult, error) {
	setName := cmd.SetName
	if setName == "" {
		setName = a.cfg.SetName
	}
	storage, err := a.storage(cmd.WorkDir)
	if err != nil {
		return nil, err
	}
	f, err := storage.Open(a.cfg.BypassFile)
	if err != nil {
		return nil, fmt.Errorf("open bypass config, run build first: %w", err)
	}
	defer func() { _ = f.Close() }()

	set, err := bypass.ReadDirectives(f, setName)
	if err != nil {
		return nil, err
	}
	a.log.Debug("bypass config loaded", "file", a.cfg.BypassFile, "set", setName, "domains", set.Len())

	results := make([]MatchResult, 0, len(cmd.Names))
	for _, name := range cmd.Names {
		entry, _ := bypass.Match(set, name)
		results = append(results, MatchResult{Query: name, Entry: entry})
	}
	return results, nil
}

func (a *App) storage(workDir string) (*filesystem.OSStorage, error) {
	if workDir == "" {
		workDir = a.cfg.WorkDir
	}
	workDir, err := domain.ExpandHome(workDir)
	if err != nil {
		return nil, err
	}
	storage, err := filesystem.NewOSStorage(workDir)
	if err != nil {
		return nil, fmt.Errorf("open work directory: %w", err)
	}
	a.log.Debug("using work directory", "dir", storage.BaseDir())
	return storage, nil
}

func selectResources(all []domain.Resource, names []string) ([]domain.Resource, error) {
	if len(names) == 0 {
		return all, nil
	}
	out := make([]domain.Resource, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(all, func(r domain.Resource) bool { return r.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown resource %q", name)
		}
		out = append(out, all[i])
	}
	return out, nil
}
