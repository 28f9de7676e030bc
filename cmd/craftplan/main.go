package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"craftplan/internal/app"
	"craftplan/internal/catalog"
	"craftplan/internal/config"
	"craftplan/internal/dataset"
	"craftplan/internal/db"
	"craftplan/internal/engine"
	"craftplan/internal/migrate"
	"craftplan/internal/render"
	"craftplan/internal/repo"
	"craftplan/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "craftplan",
	Short: "Craftplan CLI",
	Long: `Craftplan computes crafting plans from acquisition recipes.
Core concepts:
- Workspace: your .craftplan directory holding the recipe database and plan history.
- Recipe: how an item is acquired (craft, purchase, or raw) with cost, source, profession, and skill tier.
- Plan: the full requirement tree for a target item, aggregated into raw materials,
  purchases, crafting fees, required professions, and a tier-ordered crafting sequence.
- Dataset: a CSV of recipes you import into the workspace or point at directly.
- History: computed plans saved to the workspace, viewable with 'craftplan history'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CRAFTPLAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("data", "", "recipe CSV path (overrides workspace dataset)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))
}

func registerCommands() {
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func planCmd() *cobra.Command {
	var quantity int
	var save bool
	cmd := &cobra.Command{
		Use:   "plan <item>",
		Short: "Compute a crafting plan for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd.Context(), func(ctx context.Context, cat *catalog.Catalog, r repo.Repo, cfg *config.Config) error {
				qty := quantity
				if qty <= 0 {
					qty = cfg.Plan.DefaultQuantity
				}
				e := engine.New(cat)
				root, err := e.Resolve(args[0], qty)
				if err != nil {
					return err
				}
				plan, err := e.PlanFromTree(root)
				if err != nil {
					return err
				}
				if save {
					rec, err := app.SavePlan(ctx, r, plan, viper.GetString("actor-id"), time.Now().UTC())
					if err != nil {
						return err
					}
					fmt.Printf("Saved plan %s\n", rec.ID)
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				fmt.Println(render.Report(plan, cat, root))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 0, "quantity to craft (defaults from config)")
	cmd.Flags().BoolVar(&save, "save", false, "save the plan to workspace history")
	return cmd
}

func itemsCmd() *cobra.Command {
	items := &cobra.Command{Use: "items", Short: "Inspect the recipe catalog"}
	items.AddCommand(itemsListCmd())
	items.AddCommand(itemsShowCmd())
	items.AddCommand(itemsSearchCmd())
	return items
}

func itemsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd.Context(), func(ctx context.Context, cat *catalog.Catalog, r repo.Repo, cfg *config.Config) error {
				return printJSONOrTable(rulesFor(cat, cat.Items()))
			})
		},
	}
	return cmd
}

func itemsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <item>",
		Short: "Show one catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd.Context(), func(ctx context.Context, cat *catalog.Catalog, r repo.Repo, cfg *config.Config) error {
				if !cat.Has(args[0]) {
					return fmt.Errorf("unknown item %q", args[0])
				}
				return printJSONOrTable(cat.Lookup(args[0]))
			})
		},
	}
	return cmd
}

func itemsSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search catalog items by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd.Context(), func(ctx context.Context, cat *catalog.Catalog, r repo.Repo, cfg *config.Config) error {
				q := strings.ToLower(args[0])
				var matched []string
				for _, item := range cat.Items() {
					if strings.Contains(strings.ToLower(item), q) {
						matched = append(matched, item)
					}
				}
				return printJSONOrTable(rulesFor(cat, matched))
			})
		},
	}
	return cmd
}

func datasetCmd() *cobra.Command {
	ds := &cobra.Command{Use: "dataset", Short: "Manage the recipe dataset"}
	ds.AddCommand(datasetImportCmd())
	ds.AddCommand(datasetValidateCmd())
	return ds
}

func datasetImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a recipe CSV into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := dataset.Load(file)
			if err != nil {
				return err
			}
			if _, err := catalog.New(rules); err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := app.ImportDataset(ctx, r, rules, file, viper.GetString("actor-id"), time.Now().UTC()); err != nil {
					return err
				}
				fmt.Printf("Imported %d recipes from %s\n", len(rules), file)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "recipe CSV path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func datasetValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a recipe CSV and report every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = viper.GetString("data")
			}
			if path == "" {
				workspace := viper.GetString("workspace")
				cfg, err := config.Load(workspace)
				if err != nil {
					return err
				}
				path = cfg.Dataset.Path
			}
			problems, err := dataset.Lint(path)
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				fmt.Printf("%s: no problems found\n", path)
				return nil
			}
			if viper.GetBool("json") {
				if err := printJSON(problems); err != nil {
					return err
				}
			} else {
				for _, p := range problems {
					for _, msg := range p.Messages {
						fmt.Printf("line %d (%s): %s\n", p.Line, p.Item, msg)
					}
				}
			}
			return fmt.Errorf("%d rows with problems", len(problems))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "recipe CSV path (defaults to configured dataset)")
	return cmd
}

func historyCmd() *cobra.Command {
	hist := &cobra.Command{Use: "history", Short: "Browse saved plans"}
	hist.AddCommand(historyListCmd())
	hist.AddCommand(historyShowCmd())
	return hist
}

func historyListCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plans, err := r.ListPlans(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(plans)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of plans")
	return cmd
}

func historyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a saved plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				rec, err := r.GetPlan(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace configuration"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default craftplan.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Write(workspace); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the workspace event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			cat, source, err := app.ResolveCatalog(cmd.Context(), cfg, viper.GetString("data"), r)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("CRAFTPLAN_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("CRAFTPLAN_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: engine.New(cat), Repo: r, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Println(serveBanner(addr, basePath, source))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults from config)")
	return cmd
}

// --- helpers ---

func serveBanner(addr, basePath, source string) string {
	return fmt.Sprintf("Serving Craftplan API on http://%s%s (recipes from %s, OpenAPI at %s, Swagger UI at /docs)",
		addr, basePath, source, path.Join(basePath, "openapi.json"))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withCatalog(ctx context.Context, fn func(context.Context, *catalog.Catalog, repo.Repo, *config.Config) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	cat, _, err := app.ResolveCatalog(ctx, cfg, viper.GetString("data"), r)
	if err != nil {
		return err
	}
	return fn(ctx, cat, r, cfg)
}

func rulesFor(cat *catalog.Catalog, items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, cat.Lookup(item))
	}
	return out
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
