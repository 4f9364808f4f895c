package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bundlecrypt/bundlecrypt"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and decrypt every bundle in a catalog",
	Long: `Fetch downloads the asset catalog, verifies bundles that already
exist below the output directory, and downloads, decrypts, and persists
the rest under bounded concurrency. Failed bundles are retried with
concurrency reduced to one.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("catalog", "", "catalog URL (required)")
	fetchCmd.Flags().String("base-url", "", "bundle endpoint; overrides the catalog's baseUrl")
	fetchCmd.Flags().StringP("output", "o", "assets", "output directory")
	fetchCmd.Flags().IntP("concurrency", "c", bundlecrypt.DefaultConcurrency, "maximum concurrent downloads")
	fetchCmd.Flags().Int("max-passes", 10, "retry pass limit; 0 retries until everything succeeds")
	fetchCmd.Flags().String("user-agent", "bundlecrypt/0.3", "User-Agent header for bundle fetches")

	viper.BindPFlag("catalog", fetchCmd.Flags().Lookup("catalog"))
	viper.BindPFlag("base_url", fetchCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("output", fetchCmd.Flags().Lookup("output"))
	viper.BindPFlag("concurrency", fetchCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("max_passes", fetchCmd.Flags().Lookup("max-passes"))
	viper.BindPFlag("user_agent", fetchCmd.Flags().Lookup("user-agent"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	catalogURL := viper.GetString("catalog")
	if catalogURL == "" {
		return fmt.Errorf("--catalog is required")
	}

	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := bundlecrypt.FetchCatalog(ctx, nil, catalogURL)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "bundles", len(catalog.Bundles))

	baseURL := viper.GetString("base_url")
	if baseURL == "" {
		baseURL = catalog.BaseURL
	}
	transport, err := bundlecrypt.NewHTTPTransport(baseURL,
		bundlecrypt.WithUserAgent(viper.GetString("user_agent")))
	if err != nil {
		return err
	}

	outputFS, err := newRootedFS(viper.GetString("output"))
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dl, err := bundlecrypt.NewDownloader(&bundlecrypt.Config{
		Transport:   transport,
		OutputFS:    outputFS,
		Concurrency: viper.GetInt("concurrency"),
		MaxPasses:   viper.GetInt("max_passes"),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	stopBar := make(chan struct{})
	if !quiet {
		go watchProgress(dl.Progress(), stopBar)
	}

	result, err := dl.Run(ctx, catalog.Bundles)
	close(stopBar)
	if err != nil {
		return err
	}

	logger.Info("run complete",
		"verified", result.Verified,
		"downloaded", result.Downloaded,
		"passes", len(result.Passes))
	return nil
}

// watchProgress polls the downloader's pass counters and renders them as a
// progress bar. The counters reset between passes, so the bar restarts for
// each retry pass.
func watchProgress(progress *bundlecrypt.Progress, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	var barTotal, last int64

	for {
		select {
		case <-stop:
			if bar != nil {
				bar.Finish()
			}
			return
		case <-ticker.C:
			total := progress.Total()
			if total == 0 {
				continue
			}
			completed := progress.Completed()
			if bar == nil || total != barTotal || completed < last {
				bar = progressbar.Default(total)
				barTotal = total
			}
			bar.Set64(completed)
			last = completed
		}
	}
}
