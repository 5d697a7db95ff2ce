package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkscope/linkscope/internal/export"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/graph/dataset"
	"github.com/linkscope/linkscope/internal/observability"
	"github.com/linkscope/linkscope/internal/query"
	"github.com/linkscope/linkscope/internal/server"
	"github.com/linkscope/linkscope/internal/snapshot"
)

// store writes snap to w under a store span and records the audit event.
func (a *app) store(ctx context.Context, target string, w graph.Writer, snap *graph.Snapshot) error {
	nodes, edges := len(snap.Nodes()), len(snap.Edges())
	ctx, span := observability.StartStoreSpan(ctx, target, nodes, edges)
	defer span.End()

	start := time.Now()
	err := w.StoreSnapshot(ctx, snap)
	observability.RecordError(span, err)
	a.audit.LogSnapshotImport(target, nodes, edges, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("store to %s: %w", target, err)
	}
	a.logger.Info("snapshot stored", "target", target, "nodes", nodes, "edges", edges, "duration", time.Since(start))
	return nil
}

// load reads a snapshot from a repository outside the query service, under
// a load span and with an audit event.
func (a *app) load(ctx context.Context, src *dataset.Repository) (*graph.Snapshot, error) {
	ctx, span := observability.StartLoadSpan(ctx, src.String())
	defer span.End()

	start := time.Now()
	snap, err := src.LoadSnapshot(ctx)
	observability.RecordError(span, err)
	if err != nil {
		a.audit.LogSnapshotLoad(src.String(), 0, 0, time.Since(start), err)
		return nil, err
	}
	observability.RecordSnapshotSize(span, len(snap.Nodes()), len(snap.Edges()))
	a.audit.LogSnapshotLoad(src.String(), len(snap.Nodes()), len(snap.Edges()), time.Since(start), nil)
	return snap, nil
}

func newImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Load the dataset file into Neo4j, replacing its graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			src, err := dataset.New(a.cfg.Graph.Dataset, dataset.WithLogger(a.logger))
			if err != nil {
				return err
			}
			snap, err := a.load(ctx, src)
			if err != nil {
				return err
			}

			dst, err := a.openNeo4j(ctx)
			if err != nil {
				return err
			}
			defer dst.Close(context.WithoutCancel(ctx))

			if err := a.store(ctx, dst.String(), dst, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d edges into %s\n",
				len(snap.Nodes()), len(snap.Edges()), a.cfg.Graph.Neo4j.URI)
			return nil
		},
	}
}

func newDumpCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the configured source's graph to a dataset file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				dst, err := dataset.New(out, dataset.WithLogger(a.logger))
				if err != nil {
					return err
				}
				snap := svc.Snapshot()
				if err := a.store(ctx, dst.String(), dst, snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d nodes and %d edges to %s\n",
					len(snap.Nodes()), len(snap.Edges()), out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output dataset file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDiffCmd(g *globalFlags) *cobra.Command {
	var (
		against string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the configured source's graph with another dataset file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f != export.FormatText && f != export.FormatJSON {
				return fmt.Errorf("diff supports text and json output, not %s", f)
			}
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				other, err := dataset.New(against, dataset.WithLogger(a.logger))
				if err != nil {
					return err
				}
				snap, err := a.load(ctx, other)
				if err != nil {
					return err
				}
				d := snapshot.Compare(svc.Snapshot(), snap)
				if f == export.FormatJSON {
					return writeJSON(cmd.OutOrStdout(), d)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), snapshot.FormatDiff(d))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "Dataset file to compare with (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("against")
	return cmd
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		addr     string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a snapshot loaded, reload it on file changes and serve health and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if a.cfg.Graph.Source != "file" {
				a.close(ctx)
				return fmt.Errorf("watch needs a file source, got %q", a.cfg.Graph.Source)
			}
			if !cmd.Flags().Changed("metrics-addr") && a.cfg.Metrics.ListenAddr != "" {
				addr = a.cfg.Metrics.ListenAddr
			}
			return runWatch(ctx, a, addr, debounce)
		},
	}
	cmd.Flags().StringVar(&addr, "metrics-addr", ":9464", "Listen address for /healthz, /readyz, /livez and /metrics")
	cmd.Flags().DurationVar(&debounce, "debounce", dataset.DefaultDebounce, "Quiet period before a changed file is reloaded")
	return cmd
}

func runWatch(ctx context.Context, a *app, addr string, debounce time.Duration) error {
	sd := server.NewShutdownHandler(30*time.Second, a.logger)
	sd.RegisterHook("tracing", server.PriorityTracing, a.tracer.Shutdown)
	sd.RegisterHook("audit", server.PriorityAudit, func(context.Context) error { return a.audit.Close() })

	repo, err := dataset.New(a.cfg.Graph.Dataset, dataset.WithLogger(a.logger))
	if err != nil {
		sd.Shutdown()
		return err
	}
	sd.RegisterHook("repository", server.PriorityRepository, repo.Close)

	svc := query.New(a.cfg.Search,
		query.WithRepository(repo),
		query.WithLogger(a.logger),
		query.WithMetrics(a.metrics),
		query.WithAudit(a.audit),
	)
	if err := svc.Reload(ctx, "startup"); err != nil {
		sd.Shutdown()
		return err
	}

	health := server.NewHealthServer(version)
	health.RegisterCheck("snapshot", server.SnapshotChecker(svc.Snapshot, svc.LastReloadError))
	health.Mount("/metrics", a.metrics.Handler())
	srv := health.NewHTTPServer(addr)
	sd.RegisterHook("http", server.PriorityHTTP, srv.Shutdown)

	sd.Start()
	stop := context.AfterFunc(ctx, sd.Shutdown)
	defer stop()
	go func() {
		a.logger.Info("serving health and metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops server failed", "error", err)
			sd.Shutdown()
		}
	}()
	health.SetReady(true)

	watchCtx := sd.Context()
	a.logger.Info("watching dataset", "path", repo.Path(), "debounce", debounce)
	err = dataset.Watch(watchCtx, repo.Path(), debounce, func() {
		// failures are logged and audited by the service; the previous
		// snapshot keeps serving
		_ = svc.Reload(watchCtx, "watch")
	}, a.logger)

	health.SetReady(false)
	sd.Shutdown()
	return err
}
