package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aguxez/nutricalc/agent"
	"github.com/aguxez/nutricalc/api"
	"github.com/aguxez/nutricalc/config"
	"github.com/aguxez/nutricalc/csvio"
	"github.com/aguxez/nutricalc/filewatch"
	"github.com/aguxez/nutricalc/logging"
	"github.com/aguxez/nutricalc/metrics"
	"github.com/aguxez/nutricalc/models"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "nutricalc",
		Short:        "Food nutrition database and meal calculator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("addr", ":8080", "HTTP listen address")
	rootCmd.PersistentFlags().Bool("watch", true, "merge CSV files written into the data directories")
	_ = v.BindPFlag("server.addr", rootCmd.PersistentFlags().Lookup("addr"))
	_ = v.BindPFlag("data.watch", rootCmd.PersistentFlags().Lookup("watch"))

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and meal calculator over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, settings)
		},
	}

	totalCmd := &cobra.Command{
		Use:   "total <results.csv>",
		Short: "Print a meal-results CSV with a recomputed total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTotal(cmd, args[0])
		},
	}

	rootCmd.AddCommand(serveCmd, totalCmd)
	rootCmd.RunE = serveCmd.RunE
	return rootCmd
}

func serve(ctx context.Context, settings *config.Settings) error {
	logger, closeLog, err := logging.New(logging.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		File:   settings.Log.File,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	state := models.NewStateManager()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	var advisor api.MealAdvisor
	if settings.LLM.Enabled {
		llm, err := agent.NewOpenAIModel(settings.LLM.BaseURL, settings.LLM.Token, settings.LLM.Model)
		if err != nil {
			return err
		}
		advisor = agent.NewNutritionAgent(llm, state, settings.LLM.MemoryWindow, logging.Module(logger, "agent"))
	}

	srv := api.NewServer(state, api.Options{
		Advisor:  advisor,
		Metrics:  m,
		Gatherer: registry,
		Labels:   settings.Labels(),
		Logger:   logging.Module(logger, "api"),
	})

	fw, err := filewatch.NewFileWatcher(settings.Data.FoodsDir, settings.Data.MealsDir, state, logging.Module(logger, "filewatch"))
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()
	fw.OnChange = srv.UpdateGauges

	// On init, load into memory
	if err := fw.LoadAll(); err != nil {
		return fmt.Errorf("loading data directories: %w", err)
	}
	srv.UpdateGauges()
	if settings.Data.Watch {
		go fw.Watch(ctx)
	}

	httpServer := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", settings.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func printTotal(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csvio.ParseMealResults(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	ledger := models.NewMealLedger()
	ledger.ImportMerge(rows)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "food\tweight g\tkcal\tprotein g\tfat g\tcarbohydrate g\tsalt g\tnote\t")
	for _, it := range models.RenderWithTotal(ledger) {
		n := it.Nutrients
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			it.FoodName, it.WeightG, n.Energy, n.Protein, n.Fat, n.Carbohydrate, n.Salt, it.Note)
	}
	return tw.Flush()
}
