package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rowjay/monthly-archiver/internal/app"
	"github.com/rowjay/monthly-archiver/internal/archive"
	"github.com/rowjay/monthly-archiver/internal/compress"
	"github.com/rowjay/monthly-archiver/internal/config"
	"github.com/rowjay/monthly-archiver/internal/cryptoutil"
	"github.com/rowjay/monthly-archiver/internal/logging"
	"github.com/rowjay/monthly-archiver/internal/notify"
	"github.com/rowjay/monthly-archiver/internal/storage"
	"github.com/rowjay/monthly-archiver/internal/version"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Bucket      string
	LocalDir    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    string
	S3PathStyle string
	Timezone    string
	Prefixes    []string
}

type runFlags struct {
	Output        string
	Scratch       string
	Upload        bool
	Date          string
	Method        string
	Encrypt       bool
	EncryptionKey string
}

func main() {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:           "archiver",
		Short:         "Archive the previous month of a document bucket into zip files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	rootCmd.PersistentFlags().StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	rootCmd.PersistentFlags().StringVar(&overrides.Bucket, "bucket", "", "S3 bucket holding the documents")
	rootCmd.PersistentFlags().StringVar(&overrides.LocalDir, "local-dir", "", "Local data directory used instead of a bucket")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Endpoint, "s3-endpoint", "", "S3 endpoint (AWS, MinIO, other S3 compatible)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3Region, "s3-region", "", "S3 region")
	rootCmd.PersistentFlags().StringVar(&overrides.S3AccessKey, "s3-access-key", "", "S3 access key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3SecretKey, "s3-secret-key", "", "S3 secret key")
	rootCmd.PersistentFlags().StringVar(&overrides.S3UseSSL, "s3-ssl", "", "Use SSL for S3 endpoint (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.S3PathStyle, "s3-path-style", "", "Force path-style S3 (true/false)")
	rootCmd.PersistentFlags().StringVar(&overrides.Timezone, "timezone", "", "Timezone months are computed in (default UTC)")
	rootCmd.PersistentFlags().StringSliceVar(&overrides.Prefixes, "prefix", nil, "Prefixes to archive (default Opening/,Customer/)")

	rootCmd.AddCommand(newRunCmd(root, overrides))
	rootCmd.AddCommand(newListCmd(root, overrides))
	rootCmd.AddCommand(newValidateCmd(root, overrides))
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newDecryptCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Archive the previous month and optionally upload the archives",
		Example: `  archiver run --bucket my-bucket --output ./archives
  archiver run --local-dir ./data --output ./archives
  archiver run --bucket my-bucket --output ./archives --upload
  archiver run --bucket my-bucket --output ./archives --date 2025-10-15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			applyRunFlags(cfg, flags)
			ref, err := referenceDate(cfg, flags.Date)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
			appSvc, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()

			stats, runErr := appSvc.Run(ctx, ref)
			if stats != nil && len(stats.Jobs) > 0 {
				app.WriteSummary(cmd.OutOrStdout(), stats)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flags.Output, "output", "", "Output directory for zip files")
	cmd.Flags().StringVar(&flags.Scratch, "scratch-dir", "", "Directory for temporary downloads (default system temp)")
	cmd.Flags().BoolVar(&flags.Upload, "upload", false, "Upload zip files back to the store under archives/")
	cmd.Flags().StringVar(&flags.Date, "date", "", "Reference date (YYYY-MM-DD); the month before it is archived")
	cmd.Flags().StringVar(&flags.Method, "method", "", "Zip compression method (deflate, zstd)")
	cmd.Flags().BoolVar(&flags.Encrypt, "encrypt", false, "Encrypt uploaded archives")
	cmd.Flags().StringVar(&flags.EncryptionKey, "encryption-key", "", "Encryption key (base64 or hex) for uploaded archives")
	return cmd
}

func newListCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the objects the next run would archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			ref, err := referenceDate(cfg, date)
			if err != nil {
				return err
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
			appSvc, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()

			r, results, err := appSvc.Preview(ctx, ref)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s (%s)\n", r.Month(), r)
			for _, res := range results {
				for _, obj := range res.Objects {
					fmt.Fprintf(out, "%s\t%d\t%s\n", obj.Key, obj.Size, obj.Timestamp.Format(time.RFC3339))
				}
				fmt.Fprintf(out, "# %s: %d files\n", res.Prefix, res.Files)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date (YYYY-MM-DD)")
	return cmd
}

func newValidateCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and store connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root, overrides)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat)
			appSvc, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.OperationTimeout)
			defer cancel()
			if err := appSvc.Validate(ctx); err != nil {
				return err
			}
			logger.Info().Str("source", appSvc.Storage.Location()).Msg("validation succeeded")
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive.zip>",
		Short: "List the entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := compress.OpenZip(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()
			out := cmd.OutOrStdout()
			var total uint64
			for _, f := range rc.File {
				fmt.Fprintf(out, "%s\t%d\t%s\n", f.Name, f.UncompressedSize64, f.Modified.UTC().Format(time.RFC3339))
				total += f.UncompressedSize64
			}
			fmt.Fprintf(out, "# %d files, %s uncompressed\n", len(rc.File), humanize.IBytes(total))
			return nil
		},
	}
}

func newDecryptCmd() *cobra.Command {
	var input, output, key string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an archive published with encryption",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			keyBytes, err := cryptoutil.ParseKey(key)
			if err != nil {
				return err
			}
			return cryptoutil.DecryptFile(input, output, keyBytes)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Encrypted archive")
	cmd.Flags().StringVar(&output, "output", "", "Decrypted zip destination")
	cmd.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")

	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := cryptoutil.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cryptoutil.FormatKey(key))
			return nil
		},
	}

	cmd.AddCommand(encrypt, keygen)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "archiver %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app.App, error) {
	store, err := storage.New(cfg.Source)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, store, logger, notify.FromConfig(cfg.Notifications)), nil
}

// referenceDate resolves --date before any store call so a malformed value
// aborts without I/O.
func referenceDate(cfg *config.Config, value string) (time.Time, error) {
	loc, err := cfg.Global.Location()
	if err != nil {
		return time.Time{}, err
	}
	return archive.ParseReference(value, time.Now(), loc)
}

func loadConfig(root *rootFlags, overrides *overrideFlags) (*config.Config, error) {
	if overrides.Bucket != "" && overrides.LocalDir != "" {
		return nil, fmt.Errorf("cannot specify both --bucket and --local-dir")
	}
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, overrides)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, root *rootFlags, overrides *overrideFlags) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}
	if overrides.Timezone != "" {
		cfg.Global.Timezone = overrides.Timezone
	}

	if overrides.LocalDir != "" {
		cfg.Source.Backend = "local"
		cfg.Source.Local.Path = overrides.LocalDir
	}
	if overrides.Bucket != "" {
		cfg.Source.Backend = "s3"
		cfg.Source.S3.Bucket = overrides.Bucket
	}
	if overrides.S3Endpoint != "" {
		cfg.Source.S3.Endpoint = overrides.S3Endpoint
	}
	if overrides.S3Region != "" {
		cfg.Source.S3.Region = overrides.S3Region
	}
	if overrides.S3AccessKey != "" {
		cfg.Source.S3.AccessKey = overrides.S3AccessKey
	}
	if overrides.S3SecretKey != "" {
		cfg.Source.S3.SecretKey = overrides.S3SecretKey
	}
	if overrides.S3UseSSL != "" {
		cfg.Source.S3.UseSSL = parseBool(overrides.S3UseSSL)
	}
	if overrides.S3PathStyle != "" {
		cfg.Source.S3.ForcePathStyle = parseBool(overrides.S3PathStyle)
	}
	if len(overrides.Prefixes) > 0 {
		cfg.Archive.Prefixes = overrides.Prefixes
	}

	cfg.Source.Backend = strings.ToLower(cfg.Source.Backend)
	cfg.Archive.Method = strings.ToLower(cfg.Archive.Method)
}

func applyRunFlags(cfg *config.Config, flags *runFlags) {
	if flags.Output != "" {
		cfg.Archive.OutputDir = flags.Output
	}
	if flags.Scratch != "" {
		cfg.Archive.ScratchDir = flags.Scratch
	}
	if flags.Upload {
		cfg.Publish.Enabled = true
	}
	if flags.Method != "" {
		cfg.Archive.Method = strings.ToLower(flags.Method)
	}
	if flags.Encrypt {
		cfg.Publish.Encryption = true
	}
	if flags.EncryptionKey != "" {
		cfg.Publish.EncryptionKey = flags.EncryptionKey
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
