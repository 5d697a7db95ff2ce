package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkscope/linkscope/internal/export"
	"github.com/linkscope/linkscope/internal/query"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "linkscope",
		Short:        "Explore how entities in a relationship graph are connected",
		Version:      version,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file path (yaml)")
	pf.StringVar(&g.dataset, "dataset", "", "Dataset file (json or yaml); implies --source file")
	pf.StringVar(&g.source, "source", "", "Snapshot source: file or neo4j")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.auditLog, "audit-log", "", "Append a JSON audit trail to this file (or stdout/stderr)")

	rootCmd.AddCommand(
		newPathsCmd(g),
		newShortestCmd(g),
		newCyclesCmd(g),
		newStatsCmd(g),
		newImportCmd(g),
		newDumpCmd(g),
		newDiffCmd(g),
		newWatchCmd(g),
	)
	return rootCmd
}

// withService runs fn against a freshly loaded snapshot.
func withService(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, a *app, svc *query.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := setup(ctx, g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	svc, repo, err := a.service(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("repository close failed", "error", err)
		}
	}()
	return fn(ctx, a, svc)
}

func newPathsCmd(g *globalFlags) *cobra.Command {
	var (
		from, to string
		depth    int
		maxPaths int
		legacy   bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "List ranked paths between two entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				limits := svc.Limits()
				if legacy {
					if !cmd.Flags().Changed("depth") {
						depth = limits.Legacy.MaxDepth
					}
					res, err := svc.LegacyPaths(ctx, from, to, depth)
					if err != nil {
						return err
					}
					return renderLegacy(cmd.OutOrStdout(), svc.Snapshot(), res, f)
				}

				if !cmd.Flags().Changed("depth") {
					depth = limits.Paths.MaxDepth
				}
				if !cmd.Flags().Changed("max-paths") {
					maxPaths = limits.Paths.MaxTotalPaths
				}
				res, err := svc.Paths(ctx, query.PathsQuery{From: from, To: to, MaxDepth: depth, MaxPaths: maxPaths})
				if err != nil {
					return err
				}
				return renderPaths(cmd.OutOrStdout(), svc.Snapshot(), res, f)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source entity id")
	cmd.Flags().StringVar(&to, "to", "", "Target entity id")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum hops per path (default from config)")
	cmd.Flags().IntVar(&maxPaths, "max-paths", 0, "Maximum paths returned (default from config)")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Use the breadth-first multi-path search")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, dot, mermaid")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newShortestCmd(g *globalFlags) *cobra.Command {
	var (
		from, to string
		depth    int
		format   string
	)
	cmd := &cobra.Command{
		Use:   "shortest",
		Short: "Find one fewest-hop path between two entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				if !cmd.Flags().Changed("depth") {
					depth = svc.Limits().Shortest.MaxDepth
				}
				res, err := svc.ShortestPath(ctx, from, to, depth)
				if err != nil {
					return err
				}
				return renderShortest(cmd.OutOrStdout(), svc.Snapshot(), res, f)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source entity id")
	cmd.Flags().StringVar(&to, "to", "", "Target entity id")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum hops (default from config)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, dot, mermaid")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newCyclesCmd(g *globalFlags) *cobra.Command {
	var (
		node      string
		maxDepth  int
		maxCycles int
		detailed  bool
		format    string
	)
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Find closed loops of relationships through an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				// graph renderers draw every hop, so they need the edges
				wantEdges := detailed || f == export.FormatDOT || f == export.FormatMermaid
				limits := svc.Limits().Cycles
				if detailed {
					limits = svc.Limits().DetailedCycles
				}
				if !cmd.Flags().Changed("max-depth") {
					maxDepth = limits.MaxDepth
				}
				if !cmd.Flags().Changed("max-cycles") {
					maxCycles = limits.MaxCycles
				}
				res, err := svc.Cycles(ctx, query.CycleQuery{
					Node:      node,
					MaxDepth:  maxDepth,
					MaxCycles: maxCycles,
					Detailed:  wantEdges,
				})
				if err != nil {
					return err
				}
				return renderCycles(cmd.OutOrStdout(), svc.Snapshot(), res, f)
			})
		},
	}
	cmd.Flags().StringVar(&node, "node", "", "Entity id the cycles must pass through")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum hops per cycle (default from config)")
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "Maximum cycles returned (default from config)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Include the relationship used for every hop")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, dot, mermaid")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the loaded graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withService(cmd, g, func(ctx context.Context, a *app, svc *query.Service) error {
				st, err := svc.Stats()
				if err != nil {
					return err
				}
				return renderStats(cmd.OutOrStdout(), st, f)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	return cmd
}
