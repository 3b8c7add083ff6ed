package args

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

var globalFlags *flag.FlagSet

type Command interface {
	Call(ctx context.Context, log *slog.Logger, cfg *domain.Config, args []string) error
	Usage() Usage
}

type Usage struct {
	Names []string
	Usage string
}

type Root struct {
	Commands []Command

	cfg *domain.Config
}

func (r *Root) Run() {

	var exit int
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		if rcv := recover(); rcv != nil {
			panic(rcv)
		}
		os.Exit(exit)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfgDir, err := getConfigDirectory(os.Args)
	if err != nil {
		fmt.Println(err.Error())
		exit = 1
		return
	}

	r.cfg = &domain.Config{}
	if err = r.cfg.Load(cfgDir); err != nil {
		fmt.Println(err.Error())
		exit = 1
		return
	}
	r.handleGlobalFlags(os.Args)

	log := NewLogger(r.cfg.LogLevel).With("run", uuid.NewString()[:8])

	if name, rest := commandArgs(os.Args); name != "" {
		for _, cmd := range r.Commands {
			for _, n := range cmd.Usage().Names {
				if n == name {
					if err := cmd.Call(ctx, log, r.cfg, rest); err != nil {
						exit = 1
					}
					return
				}
			}
		}
	}

	r.help()
}

// NewLogger builds the text logger used by every command. Source locations
// are added at debug level.
func NewLogger(level slog.Level) *slog.Logger {
	logCfg := &slog.HandlerOptions{Level: level}
	if level <= slog.LevelDebug {
		logCfg.AddSource = true
	}
	return slog.New(slog.NewTextHandler(os.Stdout, logCfg))
}

// commandArgs returns the first argument that is not a global flag, together
// with the arguments after it minus any global flags.
func commandArgs(argv []string) (string, []string) {
	for i := 1; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "--config-dir":
			i++
		case strings.HasPrefix(a, "-"):
		default:
			return strings.ToLower(strings.TrimSpace(a)), stripGlobalFlags(argv[i+1:])
		}
	}
	return "", nil
}

func stripGlobalFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--":
			return append(out, args[i:]...)
		case a == "-v", a == "--verbose", a == "--debug", strings.HasPrefix(a, "--config-dir="):
		case a == "--config-dir":
			i++
		default:
			out = append(out, a)
		}
	}
	return out
}

func (r *Root) handleGlobalFlags(argv []string) {
	var verbose bool
	var debug bool

	globalFlags = newGlobalFlags(r.cfg, &verbose, &debug)
	_ = globalFlags.ParseAll(argv, func(flag *flag.Flag, value string) error {
		_ = globalFlags.Set(flag.Name, value)
		return nil
	})

	if verbose {
		r.cfg.LogLevel = slog.LevelInfo
	}
	if debug {
		r.cfg.LogLevel = slog.LevelDebug
	}
}

func newGlobalFlags(cfg *domain.Config, verbose, debug *bool) *flag.FlagSet {
	f := flag.NewFlagSet("global", flag.ContinueOnError)
	f.ParseErrorsAllowlist = flag.ParseErrorsAllowlist{UnknownFlags: true}
	f.Usage = func() {}
	f.BoolP("help", "h", false, "Show this help")
	f.BoolVarP(verbose, "verbose", "v", false, "Verbose output")
	f.BoolVar(debug, "debug", false, "Debug output")
	f.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "Path to config dir")
	return f
}

func getConfigDirectory(argv []string) (cfgDir string, err error) {
	cfgDir, _ = domain.UserConfigDir()
	f := flag.NewFlagSet("", flag.ContinueOnError)
	f.ParseErrorsAllowlist = flag.ParseErrorsAllowlist{UnknownFlags: true}
	f.Usage = func() {}
	f.BoolP("help", "h", false, "Show this help")
	f.StringVar(&cfgDir, "config-dir", cfgDir, "Path to config dir")
	_ = f.ParseAll(argv[1:], func(flag *flag.Flag, value string) error {
		_ = f.Set(flag.Name, value)
		return nil
	})
	if cfgDir == "" {
		return cfgDir, errors.New("cannot determine config directory")
	}
	return cfgDir, nil
}

func (r *Root) help() {
	_, _ = fmt.Fprintf(os.Stderr, "USAGE: %s [OPTIONS] COMMAND\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "Build nftset bypass configs for dnsmasq and push them to routers\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "Commands:\n")
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 1, ' ', tabwriter.AlignRight|tabwriter.Debug)
	for _, cmd := range r.Commands {
		usage := cmd.Usage()
		_, _ = fmt.Fprintln(w, strings.Join(usage.Names, ","), "\t", usage.Usage)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "Global Options:\n")
	_, _ = fmt.Fprintf(os.Stderr, "%s", globalFlags.FlagUsagesWrapped(0))
}
