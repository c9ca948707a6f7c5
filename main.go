package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
	"github.com/ekaya-inc/ekaya-connect/pkg/crypto"
	"github.com/ekaya-inc/ekaya-connect/pkg/handlers"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `ekaya-connect: unified database connector

Usage:
  ekaya-connect kinds
  ekaya-connect test -type <kind> [-host h] [-port n] [-user u] [-password p] [-database d] [-async] [-params file.yaml]
  ekaya-connect pool [-config config.yaml] [-name pool] [-workers n] [-iterations n]
  ekaya-connect serve [-config config.yaml] [-addr :8080]
  ekaya-connect seal-password -name <datasource> < password.txt
  ekaya-connect version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "kinds":
		return runKinds(stdout)
	case "test":
		return runTest(args[1:], stdout, stderr)
	case "pool":
		return runPool(args[1:], stdout, stderr)
	case "serve":
		return runServe(args[1:], stderr)
	case "seal-password":
		return runSealPassword(args[1:], os.Stdin, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, Version)
		return 0
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runKinds(stdout io.Writer) int {
	f := datasource.NewFactory(datasource.FactoryConfig{}, nil)

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCATEGORY\tAVAILABLE\tNON-BLOCKING\tREQUIRED")
	for _, k := range f.Kinds() {
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%v\n", k.Kind, k.Category, k.Available, k.NonBlocking, k.RequiredFields)
	}
	_ = w.Flush()
	return 0
}

func runTest(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("type", "", "database kind (mysql, postgresql, sqlite, ...)")
	host := fs.String("host", "", "database host")
	port := fs.Int("port", 0, "database port")
	user := fs.String("user", "", "database user")
	password := fs.String("password", "", "database password")
	database := fs.String("database", "", "database name or file")
	async := fs.Bool("async", false, "use the non-blocking connector")
	paramsFile := fs.String("params", "", "YAML file with extra connection params")
	timeout := fs.Duration("timeout", datasource.DefaultConnectTimeout, "connect timeout")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *kind == "" {
		fmt.Fprintln(stderr, "-type is required")
		return 2
	}

	params, err := loadParamsFile(*paramsFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read params: %v\n", err)
		return 2
	}
	// Flags given on the command line override the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			params["host"] = *host
		case "port":
			params["port"] = *port
		case "user":
			params["user"] = *user
		case "password":
			params["password"] = *password
		case "database":
			params["database"] = *database
		}
	})

	logger, err := logging.NewLogger(*logLevel, "local")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	mode := datasource.Blocking
	if *async {
		mode = datasource.NonBlocking
	}

	f := datasource.NewFactory(datasource.FactoryConfig{ConnectTimeout: *timeout}, logger)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	fmt.Fprintf(stdout, "Connecting to %s database...\n", *kind)
	c, err := f.Connect(ctx, *kind, mode, params)
	if err != nil {
		return reportFailure(stderr, err)
	}
	defer c.Close()
	fmt.Fprintf(stdout, "Connection established (%s, %s)\n", c.Kind(), c.Mode())

	if q, ok := c.Handle().(datasource.Querier); ok && c.Kind().IsRelational() {
		n, err := q.QueryInt(ctx, testQuery(c.Kind()))
		if err != nil {
			fmt.Fprintf(stderr, "Test query failed: %s\n", logging.SanitizeError(err))
			return 1
		}
		fmt.Fprintf(stdout, "Test query returned: %d\n", n)
		return 0
	}

	if !c.IsAlive(ctx) {
		fmt.Fprintln(stderr, "Liveness probe failed")
		return 1
	}
	fmt.Fprintln(stdout, "Liveness probe: ok")
	return 0
}

func reportFailure(stderr io.Writer, err error) int {
	if apperrors.IsClassified(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Connection failed: %s\n", logging.SanitizeError(err))
	} else {
		fmt.Fprintf(stderr, "Unexpected error: %s\n", logging.SanitizeError(err))
	}
	return 1
}

func testQuery(kind datasource.Kind) string {
	if kind == datasource.KindOracle {
		return "SELECT 1 FROM DUAL"
	}
	return "SELECT 1"
}

func loadParamsFile(path string) (datasource.Params, error) {
	params := datasource.Params{}
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return params, nil
}

// setup loads configuration and builds the logger, factory and manager with
// every configured datasource defined.
func setup(configPath string) (*config.Config, *zap.Logger, datasource.ConnectorFactory, *datasource.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	factory := datasource.NewFactory(datasource.FactoryConfig{
		ConnectTimeout: cfg.ConnectTimeout(),
		MaxRetries:     cfg.Connect.MaxRetries,
	}, logger)

	manager := datasource.NewManager(factory, datasource.ManagerConfig{
		IdleTTL:        cfg.IdleTTL(),
		DefaultMaxSize: cfg.Pool.MaxSize,
	}, logger)

	for name, ds := range cfg.Datasources {
		if err := definePool(cfg, manager, name, ds); err != nil {
			manager.Close()
			return nil, nil, nil, nil, err
		}
	}
	return cfg, logger, factory, manager, nil
}

func definePool(cfg *config.Config, manager *datasource.Manager, name string, ds config.DatasourceConfig) error {
	mode, err := datasource.ParseMode(cfg.EffectiveMode(ds))
	if err != nil {
		return fmt.Errorf("datasource %q: %w", name, err)
	}
	params, err := cfg.DatasourceParams(name)
	if err != nil {
		return fmt.Errorf("datasource %q: %w", name, err)
	}
	return manager.Define(name, datasource.PoolDefinition{
		Kind:    ds.Kind,
		Mode:    mode,
		MaxSize: cfg.EffectiveMaxSize(ds),
		Params:  params,
	})
}

// poolResult counts outcomes of a pool exercise run.
type poolResult struct {
	ok        atomic.Int64
	exhausted atomic.Int64
	failed    atomic.Int64
}

func runPool(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default config.yaml if present)")
	name := fs.String("name", "", "pool to exercise (default: all)")
	workers := fs.Int("workers", 4, "concurrent borrowers per pool")
	iterations := fs.Int("iterations", 10, "checkouts per worker")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, logger, _, manager, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	defer manager.Close()

	names := manager.Names()
	if *name != "" {
		names = []string{*name}
	}
	if len(names) == 0 {
		fmt.Fprintln(stderr, "no datasources configured")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := make(map[string]*poolResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for _, poolName := range names {
		res := &poolResult{}
		results[poolName] = res
		for w := 0; w < *workers; w++ {
			g.Go(func() error {
				return exercisePool(gctx, manager, poolName, *iterations, res)
			})
		}
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, "Pool run aborted: %s\n", logging.SanitizeError(err))
		return 1
	}

	stats := manager.GetStats()
	sort.Strings(names)
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tKIND\tMODE\tMAX\tSLOTS\tOK\tEXHAUSTED\tFAILED\tRECYCLED")
	failed := false
	for _, n := range names {
		res, ps := results[n], stats.Pools[n]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			n, ps.Kind, ps.Mode, ps.MaxSize, ps.Slots, res.ok.Load(), res.exhausted.Load(), res.failed.Load(), ps.Recycled)
		if res.failed.Load() > 0 {
			failed = true
		}
	}
	_ = w.Flush()

	if failed {
		return 1
	}
	return 0
}

// exercisePool borrows from the named pool repeatedly, probing each
// connector. Exhaustion is expected when workers outnumber slots and is
// counted, not fatal. Only an undefined pool aborts the run.
func exercisePool(ctx context.Context, manager *datasource.Manager, name string, iterations int, res *poolResult) error {
	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			return nil
		}
		err := manager.Do(ctx, name, func(c datasource.Connector) error {
			if !c.IsAlive(ctx) {
				return apperrors.ConnectionError(string(c.Kind()), errors.New("liveness probe failed"))
			}
			return nil
		})
		switch {
		case err == nil:
			res.ok.Add(1)
		case errors.Is(err, apperrors.ErrPoolExhausted):
			res.exhausted.Add(1)
			time.Sleep(10 * time.Millisecond)
		case errors.Is(err, datasource.ErrPoolNotDefined):
			return err
		default:
			res.failed.Add(1)
		}
	}
	return nil
}

func runServe(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default config.yaml if present)")
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, logger, factory, manager, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	defer manager.Close()

	mux := http.NewServeMux()
	handlers.NewHealthHandler(Version, cfg.Env, manager, logger).RegisterRoutes(mux)
	handlers.NewDatasourcesHandler(factory, manager, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-connect",
			zap.String("addr", *addr),
			zap.String("version", Version),
			zap.Strings("pools", manager.Names()),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
			return 1
		}
		logger.Info("Server stopped")
	}
	return 0
}

// runSealPassword reads a password from stdin and prints it sealed for the
// named datasource, ready for password_sealed in the config file.
func runSealPassword(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("seal-password", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "datasource name the password is sealed for")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *name == "" {
		fmt.Fprintln(stderr, "-name is required")
		return 2
	}

	key := os.Getenv("CREDENTIALS_KEY")
	sealer, err := crypto.NewSealer(key)
	if err != nil {
		fmt.Fprintf(stderr, "CREDENTIALS_KEY: %v\n", err)
		return 2
	}

	raw, err := io.ReadAll(io.LimitReader(stdin, 64*1024))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read password: %v\n", err)
		return 1
	}
	password := strings.TrimRight(string(raw), "\r\n")

	sealed, err := sealer.Seal(*name, password)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to seal password: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, sealed)
	return 0
}
