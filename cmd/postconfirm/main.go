// Command postconfirm runs the challenge/response mail filter as a milter
// daemon, accepting connections from an MTA (Postfix, Sendmail) over the
// configured listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ietf-svn-conversion/postconfirm/framework/config"
	"github.com/ietf-svn-conversion/postconfirm/framework/hooks"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/milterendpoint"
	"github.com/ietf-svn-conversion/postconfirm/internal/pconfig"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
	"github.com/ietf-svn-conversion/postconfirm/internal/relay"
	"github.com/ietf-svn-conversion/postconfirm/internal/sqlstore"
	"github.com/ietf-svn-conversion/postconfirm/internal/storecache"
)

func main() {
	var (
		configPath = flag.String("config", "/etc/postconfirm/postconfirm.conf", "path to configuration file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	// Out is left nil so writes fall through to log.DefaultLogger, which is
	// what the log directive and the rotation hook reconfigure.
	logger := log.Logger{Name: "postconfirm", Debug: *debug}

	if err := run(logger, *configPath); err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

func run(logger log.Logger, configPath string) error {
	cfg, err := pconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.Debug {
		logger.Debug = true
	}
	if cfg.LogOutput != nil {
		log.DefaultLogger.Out = cfg.LogOutput
		hooks.AddHook(hooks.EventLogRotate, pconfig.ReinitLogging)
	}

	config.StateDirectory = cfg.StateDir
	config.RuntimeDirectory = cfg.RuntimeDir
	for _, dir := range []string{cfg.StateDir, cfg.RuntimeDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	ctx := context.Background()

	pool := sqlstore.NewDBPool(logger)
	defer pool.Close()

	backend, err := sqlstore.Open(ctx, pool, sqlstore.Driver(cfg.DBDriver), cfg.DBDSN, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	backend.SetConfirmTTL(cfg.ConfirmTTL)

	store := storecache.Wrap(backend, logger)

	smtpEndpoint, err := config.ParseEndpoint(cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("parsing smtp_host: %w", err)
	}
	relayer := relay.New(smtpEndpoint, cfg.Hostname, cfg.TLSConfig, logger)
	defer relayer.Close()

	dropFilter, err := postconfirm.NewDropFilter(cfg.BulkRegex, cfg.AutoSubmittedRegex)
	if err != nil {
		return fmt.Errorf("compiling drop filter: %w", err)
	}

	emitter := postconfirm.NewEmitter(cfg.MailTemplate, cfg.AdminAddress, relayer, logger)
	policy := postconfirm.NewExemptRecipientPolicy(cfg.ExemptRecipients)

	decider := &postconfirm.Decider{
		Store:      store,
		Stash:      backend,
		DropFilter: dropFilter,
		Emitter:    emitter,
		Relayer:    relayer,
		Policy:     policy,
		Log:        logger,
	}

	endpoint := &milterendpoint.Endpoint{Decider: decider, Log: logger, SpillDir: cfg.RuntimeDir}

	listenEndpoint, err := config.ParseEndpoint(cfg.Listen)
	if err != nil {
		return fmt.Errorf("parsing listen: %w", err)
	}

	ln, err := net.Listen(listenEndpoint.Network(), listenEndpoint.Address())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenEndpoint, err)
	}

	logger.Msg("listening for milter connections", "address", listenEndpoint.String())

	srv := endpoint.Server()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	sig := handleSignals(logger)

	logger.Msg("shutting down", "signal", sig.String())
	ln.Close()
	hooks.RunHooks(hooks.EventShutdown)

	select {
	case err := <-serveErr:
		if err != nil && !strings.Contains(err.Error(), "closed") {
			return err
		}
	case <-time.After(5 * time.Second):
	}

	return nil
}

// handleSignals blocks until a termination signal arrives, running the
// reload/log-rotate hooks in place for SIGUSR2/SIGUSR1 without returning.
func handleSignals(logger log.Logger) os.Signal {
	sig := make(chan os.Signal, 5)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2)

	for {
		switch s := <-sig; s {
		case syscall.SIGUSR1:
			logger.Msg("rotating logs")
			hooks.RunHooks(hooks.EventLogRotate)
		case syscall.SIGUSR2:
			logger.Msg("reloading state")
			hooks.RunHooks(hooks.EventReload)
		default:
			return s
		}
	}
}
