package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/kbukum/video-transcriber-mcp/auth/jwt"
	"github.com/kbukum/video-transcriber-mcp/authz"
	"github.com/kbukum/video-transcriber-mcp/bootstrap"
	"github.com/kbukum/video-transcriber-mcp/engine"
	"github.com/kbukum/video-transcriber-mcp/job"
	"github.com/kbukum/video-transcriber-mcp/logger"
	"github.com/kbukum/video-transcriber-mcp/mcp"
	"github.com/kbukum/video-transcriber-mcp/media"
	"github.com/kbukum/video-transcriber-mcp/model"
	"github.com/kbukum/video-transcriber-mcp/observability"
	"github.com/kbukum/video-transcriber-mcp/output"
	"github.com/kbukum/video-transcriber-mcp/probe"
	"github.com/kbukum/video-transcriber-mcp/process"
	"github.com/kbukum/video-transcriber-mcp/server"
	"github.com/kbukum/video-transcriber-mcp/session"
	"github.com/kbukum/video-transcriber-mcp/storage/s3"
	"github.com/kbukum/video-transcriber-mcp/transport"
)

type service struct {
	router *mcp.Router
	jobs   *job.Orchestrator
}

func (s *service) serveStdio(ctx context.Context) error {
	return transport.ServeStdio(ctx, s.router, os.Stdin, os.Stdout)
}

// wire builds the pipeline and the MCP router and registers the
// components of the chosen transport with app.
func wire(ctx context.Context, app *bootstrap.App[*Config]) (*service, error) {
	cfg := app.Cfg
	log := app.Logger

	telemetry, err := observability.Init(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	app.OnStop(telemetry.Shutdown)
	metrics := observability.MustMetrics(cfg.Name)

	runner := process.NewRunner(process.Config{GracePeriod: cfg.Media.GracePeriod})
	acquirer := media.NewAcquirer(cfg.Media, runner, log)
	extractor := media.NewExtractor(cfg.Media, runner, log)

	fetcher, err := model.NewHTTPFetcher(cfg.Models.DownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("model fetcher: %w", err)
	}
	models := model.NewRegistry(cfg.Models, fetcher, log)

	eng, err := engine.NewFromConfig(cfg.Engine, runner, log)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var writerOpts []output.WriterOption
	if cfg.Output.MirrorEnabled() {
		mirror, err := s3.NewStorage(ctx, cfg.Output.S3)
		if err != nil {
			return nil, fmt.Errorf("output.s3: %w", err)
		}
		writerOpts = append(writerOpts, output.WithMirror(mirror))
		app.Summary.AddDetail("mirror", "s3://"+path.Join(mirror.Bucket(), cfg.Output.S3.Prefix))
	}
	writer, err := output.NewWriter(cfg.Output.Dir, log, writerOpts...)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	jobs := job.New(cfg.Jobs, job.Deps{
		Acquirer:    acquirer,
		Extractor:   extractor,
		Models:      models,
		Transcriber: eng,
		Writer:      writer,
		Writers:     writerFactory(log, writerOpts...),
		Metrics:     metrics,
	}, log)
	if err := app.RegisterComponent(jobs); err != nil {
		return nil, err
	}

	prober := probe.New(probe.DefaultTools(cfg.Media.YtDlpPath, cfg.Media.FFmpegPath, eng.Binary()), runner, models, log)

	routerOpts := []mcp.Option{
		mcp.WithMetrics(metrics),
		mcp.WithInstructions(mcp.Instructions),
	}
	if cfg.Transport == TransportHTTP && cfg.Server.Auth.Enabled() && cfg.Server.Auth.RequireScope {
		routerOpts = append(routerOpts, mcp.WithAuthorizer(jwt.ScopeAuthorizer(authz.Scope)))
	}
	router := mcp.NewRouter(mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version}, log, routerOpts...)
	tools, err := mcp.NewService(mcp.ServiceConfig{
		OutputDir:      cfg.Output.Dir,
		DefaultTier:    cfg.DefaultTier(),
		DefaultFormats: cfg.OutputFormats(),
	}, mcp.ServiceDeps{Jobs: jobs, Probe: prober, Sites: acquirer}, log)
	if err != nil {
		return nil, err
	}
	tools.Register(router)

	app.Summary.AddDetail("transport", cfg.Transport)
	app.Summary.AddDetail("engine", fmt.Sprintf("%s (max %d concurrent)", eng.Name(), eng.Capacity()))
	app.Summary.AddDetail("models", cfg.Models.Dir)
	app.Summary.AddDetail("output", cfg.Output.Dir)

	svc := &service{router: router, jobs: jobs}
	if cfg.Transport == TransportHTTP {
		if err := wireHTTP(app, svc, metrics); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func wireHTTP(app *bootstrap.App[*Config], svc *service, metrics *observability.Metrics) error {
	cfg := app.Cfg
	log := app.Logger

	sessions := session.NewManager(cfg.Session, nil, log, session.WithMetrics(metrics))
	if err := app.RegisterComponent(sessions); err != nil {
		return err
	}

	var opts []transport.HTTPOption
	if cfg.Server.Auth.Enabled() {
		verifier, err := jwt.NewVerifier(&cfg.Server.Auth)
		if err != nil {
			return fmt.Errorf("server.auth: %w", err)
		}
		opts = append(opts, transport.WithAuth(verifier.Validator()))
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll, func() map[string]any {
		return map[string]any{
			"transport": TransportHTTP,
			"sessions":  sessions.Len(),
			"jobs":      svc.jobs.Active(),
			"tools":     len(svc.router.Tools()),
		}
	})
	transport.NewHTTPHandler(svc.router, sessions, log, opts...).Register(srv.GinEngine())

	scheme := "http://"
	if cfg.Server.TLS.Enabled() {
		scheme = "https://"
	}
	app.Summary.AddDetail("mcp endpoint", scheme+cfg.Server.Address()+transport.Path)
	app.Summary.AddDetail("auth", strconv.FormatBool(cfg.Server.Auth.Enabled()))
	if cfg.Server.Auth.RequireScope {
		app.Summary.AddDetail("scopes", "required")
	}
	return app.RegisterComponent(server.NewComponent(srv))
}

// writerFactory opens writers for per-request output directories.
func writerFactory(log *logger.Logger, opts ...output.WriterOption) job.WriterFactory {
	return func(dir string) (job.Writer, error) {
		w, err := output.NewWriter(dir, log, opts...)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}
