package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/modelfinder/pkg/config"
	"github.com/Sumatoshi-tech/modelfinder/pkg/discovery"
	"github.com/Sumatoshi-tech/modelfinder/pkg/observability"
	"github.com/Sumatoshi-tech/modelfinder/pkg/version"
)

// Scan flag names.
const (
	flagRecursive = "recursive"
	flagIgnore    = "ignore"
	flagFocus     = "focus"
	flagFormat    = "format"
	flagNoColor   = "no-color"
	flagWorkers   = "workers"
	flagTypePath  = "type-path"
	flagStrict    = "strict"
	flagBaseModel = "base-model"
)

// scanFlags are the discovery flags shared by discover, relations and export.
type scanFlags struct {
	ignore    []string
	focus     []string
	typePaths []string
	format    string
	baseModel string
	workers   int
	recursive bool
	noColor   bool
	strict    bool
}

func (sf *scanFlags) register(cmd *cobra.Command, withOutput bool) {
	flags := cmd.Flags()

	flags.BoolVarP(&sf.recursive, flagRecursive, "r", config.DefaultRecursive, "scan subdirectories")
	flags.StringSliceVar(&sf.ignore, flagIgnore, nil, "fully-qualified class names to exclude")
	flags.StringSliceVar(&sf.focus, flagFocus, nil, "only keep these classes and the models related to them")
	flags.StringSliceVar(&sf.typePaths, flagTypePath, nil, "extra directories used to resolve parent classes (e.g. vendor)")
	flags.IntVar(&sf.workers, flagWorkers, config.DefaultWorkers, "files parsed in parallel (0 = CPU count)")
	flags.BoolVar(&sf.strict, flagStrict, config.DefaultStrict, "fail when a parent class cannot be found")
	flags.StringVar(&sf.baseModel, flagBaseModel, config.DefaultBaseModel, "base class every model extends")

	if withOutput {
		flags.StringVarP(&sf.format, flagFormat, "f", config.DefaultFormat, "output format: text, table, json, yaml")
		flags.BoolVar(&sf.noColor, flagNoColor, config.DefaultNoColor, "disable colored output")
	}
}

// apply overrides config values with the flags set on the command line.
func (sf *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed(flagRecursive) {
		cfg.Discovery.Recursive = sf.recursive
	}

	if flags.Changed(flagIgnore) {
		cfg.Discovery.Ignore = sf.ignore
	}

	if flags.Changed(flagFocus) {
		cfg.Discovery.Focus = sf.focus
	}

	if flags.Changed(flagTypePath) {
		cfg.Discovery.TypePaths = sf.typePaths
	}

	if flags.Changed(flagWorkers) {
		cfg.Discovery.Workers = sf.workers
	}

	if flags.Changed(flagStrict) {
		cfg.Discovery.Strict = sf.strict
	}

	if flags.Changed(flagBaseModel) {
		cfg.Discovery.BaseModel = sf.baseModel
	}

	if flags.Lookup(flagFormat) != nil && flags.Changed(flagFormat) {
		cfg.Output.Format = sf.format
	}

	if flags.Lookup(flagNoColor) != nil && flags.Changed(flagNoColor) {
		cfg.Output.NoColor = sf.noColor
	}
}

// session is the configured runtime of one command invocation.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	engine    *discovery.Engine
	metrics   *observability.DiscoveryMetrics
	logger    *slog.Logger
}

type sessionOption func(*sessionSettings)

type sessionSettings struct {
	mode    observability.AppMode
	obsOpts []observability.Option
}

func withMode(mode observability.AppMode) sessionOption {
	return func(s *sessionSettings) {
		s.mode = mode
	}
}

func withObservability(opts ...observability.Option) sessionOption {
	return func(s *sessionSettings) {
		s.obsOpts = append(s.obsOpts, opts...)
	}
}

// newSession loads the configuration, applies the command line flags and
// builds the telemetry providers and the discovery engine.
func newSession(cmd *cobra.Command, flags *scanFlags, opts ...sessionOption) (*session, error) {
	settings := sessionSettings{mode: observability.ModeCLI}
	for _, opt := range opts {
		opt(&settings)
	}

	configPath, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if flags != nil {
		flags.apply(cmd, cfg)

		validateErr := cfg.Validate()
		if validateErr != nil {
			return nil, validateErr
		}
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = settings.mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogJSON = cfg.Logging.JSON || settings.mode == observability.ModeMCP
	obsCfg.LogLevel = logLevel(cmd, cfg.Logging.Level)

	obsOpts := append([]observability.Option{observability.WithLogOutput(cmd.ErrOrStderr())}, settings.obsOpts...)

	providers, err := observability.Init(obsCfg, obsOpts...)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewDiscoveryMetrics(providers.Meter)
	if err != nil {
		return nil, closeAfter(providers, err)
	}

	engine, err := discovery.New(discovery.Options{
		BaseModel:  cfg.Discovery.BaseModel,
		Extensions: cfg.Discovery.Extensions,
		TypePaths:  cfg.Discovery.TypePaths,
		Strict:     cfg.Discovery.Strict,
		Workers:    cfg.Discovery.Workers,
		CacheSize:  cfg.Discovery.CacheSize,
		Logger:     providers.Logger,
		Tracer:     providers.Tracer,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, closeAfter(providers, err)
	}

	return &session{cfg: cfg, providers: providers, engine: engine, metrics: metrics, logger: providers.Logger}, nil
}

// request builds the discovery request for the directory argument, or the
// configured directory when none is given.
func (s *session) request(args []string) discovery.Request {
	dir := s.cfg.Discovery.Directory
	if len(args) > 0 {
		dir = args[0]
	}

	return discovery.Request{
		Directory: dir,
		Recursive: s.cfg.Discovery.Recursive,
		Ignore:    s.cfg.Discovery.Ignore,
		Focus:     s.cfg.Discovery.Focus,
	}
}

func (s *session) close() {
	shutdownErr := s.providers.Shutdown(context.Background())
	if shutdownErr != nil {
		s.logger.Warn("observability shutdown failed", "error", shutdownErr)
	}
}

func closeAfter(providers observability.Providers, err error) error {
	_ = providers.Shutdown(context.Background())

	return err
}

func logLevel(cmd *cobra.Command, configured string) slog.Level {
	if verbose, _ := cmd.Flags().GetBool(flagVerbose); verbose {
		return slog.LevelDebug
	}

	if quiet, _ := cmd.Flags().GetBool(flagQuiet); quiet {
		return slog.LevelError
	}

	return observability.ParseLevel(configured)
}
