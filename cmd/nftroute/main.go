package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/Rudd3r/nftroute/pkg/args"
	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/Rudd3r/nftroute/pkg/nftroute"

	flag "github.com/spf13/pflag"
)

func main() {
	(&args.Root{
		Commands: []args.Command{
			&args.Cmd[domain.CommandBuild]{
				Names: []string{"build"},
				Description: "Download the rule lists, extract their domains, drop the ones already on the direct " +
					"list and write the nftset bypass config plus the combined ad-block config",
				ShortDescription: "Build the dnsmasq bypass configs",
				Flags: func(cfg *domain.CommandBuild, flags *flag.FlagSet) {
					flags.StringVarP(
						&cfg.WorkDir,
						"dir", "d", "",
						"Directory holding downloaded resources and generated configs",
					)
					flags.Var(
						args.NewSetNameValue("", &cfg.SetName),
						"set-name",
						"nftables set that bypass domains are added to",
					)
					flags.DurationVar(
						&cfg.Timeout,
						"timeout", 0,
						"Per-resource download timeout",
					)
					flags.Var(
						args.NewRateValue(&cfg.FetchRate, &cfg.FetchRateSet),
						"rate",
						"Maximum download rate, e.g. 2 or 30/m (0 for unlimited)",
					)
					flags.BoolVar(
						&cfg.Offline,
						"offline", false,
						"Skip downloading and use the resources already in the directory",
					)
					flags.BoolVar(
						&cfg.NoSort,
						"no-sort", false,
						"Write directives in set iteration order instead of sorted",
					)
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandBuild) error {
					res, err := nftroute.NewApp(ctx, log, cfg).Build(cmdCfg)
					if err != nil {
						_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					if res.Fetch != nil {
						_, _ = fmt.Fprintf(w, "fetched\t%d\t\n", len(res.Fetch.Fetched))
						_, _ = fmt.Fprintf(w, "failed\t%d\t\n", len(res.Fetch.Failed))
					}
					_, _ = fmt.Fprintf(w, "extracted\t%d\t\n", res.Extracted)
					_, _ = fmt.Fprintf(w, "direct\t%d\t\n", res.Direct)
					_, _ = fmt.Fprintf(w, "bypass\t%d\t\n", res.Bypass)
					_, _ = fmt.Fprintf(w, "directives\t%d\t\n", res.Directives)
					_ = w.Flush()
					return nil
				},
			},
			&args.Cmd[domain.CommandFetch]{
				Names:            []string{"fetch"},
				Description:      "Download resources without building. With no NAME every resource is fetched.",
				ShortDescription: "Download the rule lists",
				PositionalArgs: []*args.PositionalArg[domain.CommandFetch]{
					{
						Name:        "name",
						Description: "Resource to fetch, as listed by the sources command",
						Multiple:    true,
						Parse: func(a []string, cfg *domain.CommandFetch) ([]string, error) {
							return args.ResourceNames(a, &cfg.Names)
						},
					},
				},
				Flags: func(cfg *domain.CommandFetch, flags *flag.FlagSet) {
					flags.StringVarP(
						&cfg.WorkDir,
						"dir", "d", "",
						"Directory downloaded resources are written to",
					)
					flags.DurationVar(
						&cfg.Timeout,
						"timeout", 0,
						"Per-resource download timeout",
					)
					flags.Var(
						args.NewRateValue(&cfg.FetchRate, &cfg.FetchRateSet),
						"rate",
						"Maximum download rate, e.g. 2 or 30/m (0 for unlimited)",
					)
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandFetch) error {
					report, err := nftroute.NewApp(ctx, log, cfg).Fetch(cmdCfg)
					if err != nil {
						_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "NAME\tSTATUS\t")
					for _, name := range report.Fetched {
						_, _ = fmt.Fprintf(w, "%s\tok\t\n", name)
					}
					failed := make([]string, 0, len(report.Failed))
					for name := range report.Failed {
						failed = append(failed, name)
					}
					slices.Sort(failed)
					for _, name := range failed {
						_, _ = fmt.Fprintf(w, "%s\t%s\t\n", name, report.Failed[name])
					}
					_ = w.Flush()
					return nil
				},
			},
			&args.Cmd[domain.CommandSources]{
				Names:            []string{"sources", "ls"},
				Description:      "List the resources the build downloads",
				ShortDescription: "List resources",
				Flags:            func(cfg *domain.CommandSources, flags *flag.FlagSet) {},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandSources) error {
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
					_, _ = fmt.Fprintln(w, "NAME\tKIND\tURL")
					for _, r := range nftroute.NewApp(ctx, log, cfg).Sources(cmdCfg) {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Kind, r.URL)
					}
					_ = w.Flush()
					return nil
				},
			},
			&args.Cmd[domain.CommandMatch]{
				Names:            []string{"match"},
				Description:      "Show which bypass entry dnsmasq would apply to each DOMAIN, using the config written by build",
				ShortDescription: "Check domains against the bypass config",
				PositionalArgs: []*args.PositionalArg[domain.CommandMatch]{
					{
						Name:        "domain",
						Description: "Domain name to look up",
						Multiple:    true,
						Required:    true,
						Parse: func(a []string, cfg *domain.CommandMatch) ([]string, error) {
							cfg.Names = append(cfg.Names, a...)
							return nil, nil
						},
					},
				},
				Flags: func(cfg *domain.CommandMatch, flags *flag.FlagSet) {
					flags.StringVarP(
						&cfg.WorkDir,
						"dir", "d", "",
						"Directory holding the generated configs",
					)
					flags.Var(
						args.NewSetNameValue("", &cfg.SetName),
						"set-name",
						"nftables set to match against",
					)
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandMatch) error {
					results, err := nftroute.NewApp(ctx, log, cfg).Match(cmdCfg)
					if err != nil {
						_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "DOMAIN\tROUTE\tENTRY\t")
					for _, r := range results {
						if r.Entry == "" {
							_, _ = fmt.Fprintf(w, "%s\tdefault\t-\t\n", r.Query)
							continue
						}
						_, _ = fmt.Fprintf(w, "%s\tbypass\t%s\t\n", r.Query, r.Entry)
					}
					_ = w.Flush()
					return nil
				},
			},
			&args.Cmd[domain.CommandUpload]{
				Names:            []string{"upload", "push"},
				Description:      "Copy files to routers over SFTP as described by a YAML manifest",
				ShortDescription: "Upload configs to routers",
				Flags: func(cfg *domain.CommandUpload, flags *flag.FlagSet) {
					flags.StringVarP(
						&cfg.Manifest,
						"config", "c", "",
						"Upload manifest (default from config, "+domain.DefaultManifestFile+")",
					)
					flags.BoolVar(
						&cfg.DryRun,
						"dry-run", false,
						"Print the planned transfers without connecting",
					)
				},
				Run: func(ctx context.Context, log *slog.Logger, cfg *domain.Config, cmdCfg *domain.CommandUpload) error {
					start := time.Now()
					report, err := nftroute.NewApp(ctx, log, cfg).Upload(cmdCfg)
					if err != nil {
						_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "ROUTER\tLOCAL\tREMOTE\tSTATUS\t")
					for _, t := range report.Transfers {
						status := "ok"
						if cmdCfg.DryRun {
							status = "planned"
						}
						if t.Err != nil {
							status = t.Err.Error()
						}
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", t.Router, t.Local, t.Remote, status)
					}
					for router, err := range report.Unreachable {
						_, _ = fmt.Fprintf(w, "%s\t-\t-\t%s\t\n", router, err)
					}
					_ = w.Flush()
					log.Info("upload finished", "failed", report.Failed(), "elapsed", time.Since(start).Round(time.Millisecond))
					return nil
				},
			},
		},
	}).Run()
}
