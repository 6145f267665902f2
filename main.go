package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/auth"
	"github.com/cargohold/cargohold/internal/cache"
	"github.com/cargohold/cargohold/internal/config"
	"github.com/cargohold/cargohold/internal/docs"
	"github.com/cargohold/cargohold/internal/logging"
	"github.com/cargohold/cargohold/internal/mirror"
	"github.com/cargohold/cargohold/internal/publish"
	"github.com/cargohold/cargohold/internal/server"
	"github.com/cargohold/cargohold/internal/server/routes"
	"github.com/cargohold/cargohold/internal/storage"
	"github.com/cargohold/cargohold/internal/version"
)

// cliOptions gathers the parsed CLI flags so run() stays testable.
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run executes the selected mode and returns the process exit code.
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "unable to load config: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "unable to init logger: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["offline"] = cfg.Offline
		fields["result"] = "ok"
		logger.WithFields(fields).Info("config validated")
		return 0
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(stdErr, "unable to create data dir: %v\n", err)
		return 1
	}

	// Startup follows config -> stores -> services -> Fiber server, so every
	// request shares one store instance and one upstream client.
	db, err := storage.Open(cfg.DataDir + "/db")
	if err != nil {
		fmt.Fprintf(stdErr, "unable to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	blobs, err := cache.NewStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(stdErr, "unable to init content store: %v\n", err)
		return 1
	}

	httpClient := server.NewUpstreamClient(cfg)
	upstream := mirror.NewClient(httpClient, cfg.UpstreamIndexURL, cfg.UpstreamDownloadURL, logger)
	mirrorCache := mirror.NewCache(db.Entries(), blobs, upstream, cfg.Offline, cfg.MirrorTTL.DurationValue(), logger)

	var builder docs.Builder = docs.NopBuilder{}
	if cfg.DocsBuilderCommand != "" {
		builder = &docs.CommandBuilder{Command: cfg.DocsBuilderCommand, DataDir: cfg.DataDir}
	}
	docsQueue := docs.NewQueue(builder, cfg.DocsQueueSize, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go docsQueue.Run(ctx)

	lifecycle := publish.NewLifecycle(db.Entries(), blobs, docsQueue, logger)
	tokens := auth.NewTokens(db.Tokens(), db.Users(), logger)
	users := auth.NewUsers(db.Users(), logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.ListenPort
	fields["offline"] = cfg.Offline
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("config loaded")

	if err := startHTTPServer(cfg, logger, lifecycle, mirrorCache, tokens, users, db); err != nil {
		fmt.Fprintf(stdErr, "unable to start HTTP server: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags parses CLI arguments, combining them with the environment to
// compute the final config path.
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("cargohold", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "config file path (default ./config.toml, overridable via CARGOHOLD_CONFIG)")
	fs.BoolVar(&checkOnly, "check-config", false, "validate the config and exit")
	fs.BoolVar(&showVer, "version", false, "print version information")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("unable to parse flags: %w", err)
	}

	path := os.Getenv("CARGOHOLD_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, logger *logrus.Logger, lifecycle *publish.Lifecycle, mirrorCache *mirror.Cache, tokens *auth.Tokens, users *auth.Users, db *storage.DB) error {
	app, err := server.NewApp(server.AppOptions{Logger: logger})
	if err != nil {
		return err
	}

	routes.RegisterIndexRoutes(app, routes.IndexDeps{
		Logger:      logger,
		Mirror:      mirrorCache,
		ExternalURL: cfg.ExternalURL,
	})
	routes.RegisterDownloadRoutes(app, routes.DownloadDeps{
		Logger: logger,
		Mirror: mirrorCache,
	})
	routes.RegisterAPIRoutes(app, routes.APIDeps{
		Logger:    logger,
		Lifecycle: lifecycle,
		Entries:   db.Entries(),
		Tokens:    tokens,
		Users:     users,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.ListenPort,
	}).Info("registry listening")

	return app.Listen(fmt.Sprintf(":%d", cfg.ListenPort))
}
