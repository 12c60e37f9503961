package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/dogify/internal/app/server"
	"github.com/atinyakov/dogify/internal/app/server/grpc"
	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/config"
	"github.com/atinyakov/dogify/internal/metrics"
	"github.com/atinyakov/dogify/internal/repository"
	"github.com/atinyakov/dogify/internal/storage"
)

const (
	pprofAddr       = "localhost:6060"
	shutdownTimeout = 10 * time.Second
	certCacheDir    = "cache-dir"
)

type app struct {
	opts    *config.Options
	logger  *zap.Logger
	slots   storage.Slots
	ledger  *service.Ledger
	handler http.Handler
	grpc    *grpc.Server
	closers []io.Closer

	// setLevel, when set, applies log_level changes of the config file.
	setLevel func(string) error
}

// openSlots picks the storage backend: SQL when a DSN is set, a directory
// when a file path is set, memory otherwise.
func openSlots(ctx context.Context, opts *config.Options, logger *zap.Logger) (storage.Slots, []io.Closer, error) {
	switch {
	case opts.DatabaseDSN != "":
		logger.Info("using db", zap.String("driver", opts.DatabaseDriver))
		db, err := repository.InitDB(ctx, opts.DatabaseDriver, opts.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		repo, err := repository.CreateSlotRepository(db, opts.DatabaseDriver, opts.StorageQuota, logger)
		if err != nil {
			return nil, nil, multierr.Append(err, db.Close())
		}
		return repo, []io.Closer{repo}, nil

	case opts.FilePath != "":
		logger.Info("using file", zap.String("dir", opts.FilePath))
		fs, err := storage.NewFileStorage(opts.FilePath, logger, storage.WithQuota(opts.StorageQuota))
		if err != nil {
			return nil, nil, err
		}
		return fs, []io.Closer{fs}, nil

	default:
		logger.Info("using in memory storage")
		m, err := storage.CreateMemoryStorage(storage.WithQuota(opts.StorageQuota))
		if err != nil {
			return nil, nil, err
		}
		return m, []io.Closer{m}, nil
	}
}

func jwtSecret(opts *config.Options, logger *zap.Logger) (string, error) {
	if opts.JWTSecret != "" {
		return opts.JWTSecret, nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	logger.Warn("no jwt secret configured, issued tokens will not survive a restart")
	return hex.EncodeToString(b), nil
}

func newApp(ctx context.Context, opts *config.Options, logger *zap.Logger) (*app, error) {
	slots, closers, err := openSlots(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	secret, err := jwtSecret(opts, logger)
	if err != nil {
		return nil, multierr.Append(err, closeAll(closers))
	}
	auth := service.NewAuth(secret)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ledger := service.NewLedger(slots, logger,
		service.WithLatency(service.Latency{
			Upload: time.Duration(opts.UploadLatency),
			List:   time.Duration(opts.ListLatency),
			Delete: time.Duration(opts.DeleteLatency),
		}),
		service.WithObserver(m),
	)

	a := &app{
		opts:   opts,
		logger: logger,
		slots:  slots,
		ledger: ledger,
		handler: server.Init(ledger, server.Options{
			Auth:           auth,
			Metrics:        m,
			Gatherer:       reg,
			TrustedSubnet:  opts.TrustedSubnet,
			MaxUploadBytes: opts.MaxUploadBytes,
			UploadRPS:      opts.UploadRPS,
			UploadBurst:    opts.UploadBurst,
		}, logger),
		closers: closers,
	}

	if opts.GRPCPort > 0 {
		a.grpc = grpc.New(ledger, auth, opts.TrustedSubnet, logger, opts.GRPCPort)
	}

	return a, nil
}

func (a *app) httpServer() *http.Server {
	srv := &http.Server{
		Addr:              a.opts.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if a.opts.EnableHTTPS {
		manager := &autocert.Manager{
			Cache:      autocert.DirCache(certCacheDir),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(a.opts.TLSHostList()...),
		}
		srv.Addr = ":443"
		srv.TLSConfig = manager.TLSConfig()
	}

	return srv
}

// serve runs the HTTP and gRPC servers until ctx is done or one of them fails.
func (a *app) serve(ctx context.Context, lis net.Listener) error {
	srv := a.httpServer()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Server is running", zap.String("addr", lis.Addr().String()), zap.Bool("tls", a.opts.EnableHTTPS))

		var err error
		if a.opts.EnableHTTPS {
			err = srv.ServeTLS(lis, "", "")
		} else {
			err = srv.Serve(lis)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if a.grpc != nil {
		g.Go(a.grpc.Start)
	}

	if a.opts.Config != "" && a.setLevel != nil {
		g.Go(func() error {
			err := config.Watch(gctx, a.opts.Config, a.reload, func(err error) {
				a.logger.Warn("config reload failed", zap.Error(err))
			})
			if err != nil {
				a.logger.Warn("config watch disabled", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if a.grpc != nil {
			a.grpc.GracefulStop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *app) reload(o *config.Options) {
	if o.LogLevel == "" {
		return
	}
	if err := a.setLevel(o.LogLevel); err != nil {
		a.logger.Warn("ignoring log level from config", zap.String("level", o.LogLevel), zap.Error(err))
		return
	}
	a.logger.Info("log level changed", zap.String("level", o.LogLevel))
}

func (a *app) listen() (net.Listener, error) {
	addr := a.opts.Port
	if a.opts.EnableHTTPS {
		addr = ":443"
	}
	return net.Listen("tcp", addr)
}

func (a *app) close() error {
	a.ledger.Close()
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

func startPprof(logger *zap.Logger) {
	go func() {
		logger.Info("Starting pprof server", zap.String("addr", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			logger.Error("pprof server error", zap.Error(err))
		}
	}()
}
