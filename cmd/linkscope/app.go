package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/linkscope/linkscope/internal/config"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/graph/dataset"
	neo4jrepo "github.com/linkscope/linkscope/internal/graph/neo4j"
	"github.com/linkscope/linkscope/internal/logging"
	"github.com/linkscope/linkscope/internal/observability"
	"github.com/linkscope/linkscope/internal/query"
	"github.com/linkscope/linkscope/internal/secrets"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dataset    string
	source     string
	logLevel   string
	auditLog   string
}

// app is the wired runtime of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  *observability.TracerProvider
	metrics *observability.Metrics
	audit   *observability.AuditLogger
}

func setup(ctx context.Context, g *globalFlags, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.source != "" {
		cfg.Graph.Source = g.source
	}
	if g.dataset != "" {
		cfg.Graph.Source = "file"
		cfg.Graph.Dataset = g.dataset
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	logger, err := logging.Setup(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	tracer, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	audit, err := observability.NewAuditLogger(&observability.AuditConfig{
		Enabled:    g.auditLog != "",
		OutputPath: g.auditLog,
	})
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		tracer:  tracer,
		metrics: observability.NewMetrics(cfg.Metrics.Namespace),
		audit:   audit,
	}, nil
}

// openRepository connects to the configured snapshot source.
func (a *app) openRepository(ctx context.Context) (graph.Repository, error) {
	switch a.cfg.Graph.Source {
	case "file":
		return dataset.New(a.cfg.Graph.Dataset, dataset.WithLogger(a.logger))
	case "neo4j":
		return a.openNeo4j(ctx)
	default:
		return nil, fmt.Errorf("unknown graph source %q", a.cfg.Graph.Source)
	}
}

// openNeo4j connects with credentials from the config, filling blanks from
// the secrets provider.
func (a *app) openNeo4j(ctx context.Context) (*neo4jrepo.Neo4jRepository, error) {
	n := a.cfg.Graph.Neo4j
	if n.Password == "" || n.Username == "" {
		sc := a.cfg.Secrets
		m, err := secrets.NewManager(&secrets.Config{
			Provider: sc.Provider,
			File:     &secrets.FileConfig{Path: sc.File},
			Vault: &secrets.VaultConfig{
				Address:    sc.Vault.Address,
				Token:      sc.Vault.Token,
				MountPath:  sc.Vault.MountPath,
				SecretPath: sc.Vault.SecretPath,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("secrets: %w", err)
		}
		if n.Username == "" {
			n.Username = m.GetOrDefault(ctx, secrets.KeyNeo4jUsername, "neo4j")
		}
		if n.Password == "" {
			if n.Password, err = m.Get(ctx, secrets.KeyNeo4jPassword); err != nil {
				a.logger.Warn("no neo4j password resolved, connecting without one", "error", err)
			}
		}
	}
	return neo4jrepo.NewNeo4j(ctx, n.URI, n.Username, n.Password, n.Database)
}

// service opens the repository, loads the first snapshot and returns a
// query service ready to answer. The caller closes the repository.
func (a *app) service(ctx context.Context) (*query.Service, graph.Repository, error) {
	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := query.New(a.cfg.Search,
		query.WithRepository(repo),
		query.WithLogger(a.logger),
		query.WithMetrics(a.metrics),
		query.WithAudit(a.audit),
	)
	if err := svc.Reload(ctx, "startup"); err != nil {
		_ = repo.Close(ctx)
		return nil, nil, err
	}
	return svc, repo, nil
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("audit log close failed", "error", err)
	}
}
