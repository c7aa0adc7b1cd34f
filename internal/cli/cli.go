package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/internal/config"
	internal_http "github.com/muizidn/cs-ai-help-admin-management/internal/http"
	"github.com/muizidn/cs-ai-help-admin-management/internal/log"
	internal_storage "github.com/muizidn/cs-ai-help-admin-management/internal/storage"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/service"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/spf13/cobra"
)

// SetupCLI registers the serve, list, show and stats commands and their flags on rootCmd.
func SetupCLI(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("backend", "", "Trace store backend: mongo or postgres (overrides STORE_BACKEND)")
	rootCmd.PersistentFlags().String("db", "", "Connection string of the selected backend (overrides MONGODB_URI or DATABASE_URL)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the execution log API over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			store := initStore(ctx, cfg)
			defer store.Close(context.Background())
			if err := internal_http.StartServer(ctx, cfg, store); err != nil {
				log.GetLogger().Errorf("Server stopped: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List execution logs matching the given filters",
		Run: func(cmd *cobra.Command, args []string) {
			q := queryFromFlags(cmd)
			withService(cmd, func(ctx context.Context, svc *service.ExecutionLogService) {
				listExecutionLogs(ctx, svc, q)
			})
		},
	}
	addFilterFlags(listCmd)
	listCmd.Flags().String("sort-by", "", "Sort field: start_time, end_time, total_duration_ms, created_at")
	listCmd.Flags().String("sort-order", "", "Sort order: asc or desc")
	listCmd.Flags().Int("page", 1, "Page number")
	listCmd.Flags().Int("limit", query.DefaultLimit, "Page size (max 100)")

	showCmd := &cobra.Command{
		Use:   "show [id-or-execution-id]",
		Short: "Show one execution log with its derived decision",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withService(cmd, func(ctx context.Context, svc *service.ExecutionLogService) {
				printEnvelope(svc.Detail(ctx, args[0]))
			})
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise execution logs matching the given filters",
		Run: func(cmd *cobra.Command, args []string) {
			q := queryFromFlags(cmd)
			withService(cmd, func(ctx context.Context, svc *service.ExecutionLogService) {
				printEnvelope(svc.Stats(ctx, q))
			})
		},
	}
	addFilterFlags(statsCmd)

	rootCmd.AddCommand(serveCmd, listCmd, showCmd, statsCmd)
}

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("status", "", "Execution status: running, completed, failed")
	f.String("context", "", "Engine context, e.g. TRY_ANSWER")
	f.String("conversation-id", "", "Conversation id")
	f.String("business-id", "", "Business id")
	f.String("search", "", "Free text matched against message, ids and context")
	f.String("customer-message", "", "Text contained in the customer's message")
	f.String("ai-response", "", "Text contained in the AI response")
	f.String("final-decision", "", "Final decision, e.g. SENT_ANSWER")
	f.String("start-date", "", "Earliest start time (ISO-8601)")
	f.String("end-date", "", "Latest start time (ISO-8601)")
	f.String("step-type", "", "Only traces containing a step of this type")
}

// queryFromFlags reads the flags registered by addFilterFlags plus any paging flags.
func queryFromFlags(cmd *cobra.Command) query.Query {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	num := func(name string) int {
		v, _ := f.GetInt(name)
		return v
	}
	return query.Query{
		Status:          str("status"),
		Context:         str("context"),
		ConversationID:  str("conversation-id"),
		BusinessID:      str("business-id"),
		Search:          str("search"),
		CustomerMessage: str("customer-message"),
		AIResponse:      str("ai-response"),
		FinalDecision:   str("final-decision"),
		StartDate:       str("start-date"),
		EndDate:         str("end-date"),
		StepType:        str("step-type"),
		SortBy:          str("sort-by"),
		SortOrder:       str("sort-order"),
		Page:            num("page"),
		Limit:           num("limit"),
	}
}

func loadConfig(cmd *cobra.Command) config.Config {
	backend, _ := cmd.Flags().GetString("backend")
	db, _ := cmd.Flags().GetString("db")
	port, _ := cmd.Flags().GetString("port")
	cfg, err := config.Load(func(c *config.Config) {
		if backend != "" {
			c.StoreBackend = backend
		}
		if db != "" {
			if c.StoreBackend == config.BackendPostgres {
				c.PostgresDSN = db
			} else {
				c.MongoURI = db
			}
		}
		if port != "" {
			c.Port = port
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Configure(cfg.LogLevel, cfg.LogFormat)
	log.GetLogger().Debugf("Using %s store", cfg.StoreBackend)
	return cfg
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.ExecutionLogService)) {
	cfg := loadConfig(cmd)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	store := initStore(ctx, cfg)
	defer store.Close(context.Background())
	fn(ctx, service.NewExecutionLogService(store, log.GetLogger()))
}

func listExecutionLogs(ctx context.Context, svc *service.ExecutionLogService, q query.Query) {
	env := svc.List(ctx, q)
	if !env.OK() {
		printEnvelope(env)
		return
	}
	res := env.Data
	if len(res.Items) == 0 {
		fmt.Fprintf(os.Stdout, "No execution logs found.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Execution logs (page %d of %d, %d total):\n", res.Page, res.TotalPages, res.Total)
	for _, item := range res.Items {
		fmt.Fprintf(os.Stdout, "- ID: %s, Execution: %s, Status: %s, Decision: %s, Steps: %d, Started: %s\n",
			item.ID, item.ExecutionID, item.Status, item.FinalDecisionLabel, item.StepsCount,
			item.StartTime.Format(time.RFC3339))
	}
}

// printEnvelope writes env as indented JSON and exits non-zero when it carries an error.
func printEnvelope[T any](env service.Envelope[T]) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode response: %v\n", err)
		os.Exit(1)
	}
	if !env.OK() {
		os.Exit(1)
	}
}

func initStore(ctx context.Context, cfg config.Config) storage.TraceStore {
	store, err := internal_storage.InitStore(ctx, cfg)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
