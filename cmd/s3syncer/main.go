package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tdbstream/s3syncer/internal/config"
	"github.com/tdbstream/s3syncer/internal/store"
	"github.com/tdbstream/s3syncer/internal/syncer"
	"github.com/tdbstream/s3syncer/internal/version"
)

const (
	defaultBucket = "ts-db-stream"
	defaultPath   = "database"
	defaultRegion = "us-east-1"
)

var errPartialFailure = errors.New("some uploads failed")

var rootCmd = &cobra.Command{
	Use:     "s3syncer",
	Short:   "Sync a local directory tree to an S3 bucket, transferring only what changed",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			SourceDir:    viper.GetString("path"),
			Prefix:       viper.GetString("prefix"),
			Workers:      viper.GetInt("workers"),
			ManifestPath: viper.GetString("manifest"),
			DryRun:       viper.GetBool("dry_run"),
			Watch:        viper.GetBool("watch"),
			Quiet:        viper.GetBool("quiet"),
			S3: store.S3Config{
				Bucket:    viper.GetString("bucket"),
				Region:    viper.GetString("region"),
				AccessKey: viper.GetString("access_key"),
				SecretKey: viper.GetString("secret_key"),
				Endpoint:  viper.GetString("endpoint"),
			},
		}
		cfg.LoadDotEnv()
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		setupLogging(cfg.Quiet)
		if !cfg.Quiet {
			color.New(color.FgHiCyan, color.Bold).Fprintln(cmd.OutOrStdout(), version.DetailedWithApp())
		}

		return runSync(cmd.Context(), cfg)
	},
}

func runSync(ctx context.Context, cfg *config.Config) error {
	st, err := store.NewS3Store(ctx, &cfg.S3)
	if err != nil {
		return err
	}

	s := syncer.New(syncer.Options{
		SourceDir:     cfg.SourceDir,
		Prefix:        cfg.Prefix,
		Workers:       cfg.Workers,
		ManifestPath:  cfg.Manifest(),
		HashCachePath: cfg.HashCache(),
		DryRun:        cfg.DryRun,
	}, st)
	defer s.Close()

	slog.Info("sync start",
		"bucket", cfg.S3.Bucket,
		"source", cfg.SourceDir,
		"prefix", cfg.Prefix,
		"workers", cfg.Workers,
		"dryRun", cfg.DryRun,
	)

	if cfg.Watch {
		return s.Watch(ctx)
	}

	stats, err := s.RunPass(ctx)
	if err != nil {
		return err
	}
	fmt.Println(stats.Summary())
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errPartialFailure, stats.Failed, stats.NeedsTransfer)
	}
	return nil
}

func setupLogging(quiet bool) {
	level := slog.LevelDebug
	if quiet {
		level = slog.LevelWarn
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("bucket", "b", defaultBucket, "S3 bucket name")
	rootCmd.Flags().StringP("path", "p", defaultPath, "Local directory to sync")
	rootCmd.Flags().String("prefix", "", "Object key prefix")
	rootCmd.Flags().IntP("workers", "w", syncer.DefaultWorkers, "Number of parallel upload workers")
	rootCmd.Flags().String("region", defaultRegion, "AWS region")
	rootCmd.Flags().String("endpoint", "", "Custom S3 endpoint (enables path-style addressing)")
	rootCmd.Flags().String("manifest", "", "Manifest file path override")
	rootCmd.Flags().Bool("dry-run", false, "Reconcile and report without uploading")
	rootCmd.Flags().Bool("watch", false, "Keep running and re-sync on local changes")
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress verbose output")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (JSON)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("bucket", cmd.Flags().Lookup("bucket"))
	viper.BindPFlag("path", cmd.Flags().Lookup("path"))
	viper.BindPFlag("prefix", cmd.Flags().Lookup("prefix"))
	viper.BindPFlag("workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("region", cmd.Flags().Lookup("region"))
	viper.BindPFlag("endpoint", cmd.Flags().Lookup("endpoint"))
	viper.BindPFlag("manifest", cmd.Flags().Lookup("manifest"))
	viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("watch", cmd.Flags().Lookup("watch"))
	viper.BindPFlag("quiet", cmd.Flags().Lookup("quiet"))

	viper.SetEnvPrefix("S3SYNCER")
	viper.AutomaticEnv()

	return nil
}
