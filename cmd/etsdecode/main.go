// Gray Logic ETS Decoder
//
// etsdecode turns a KNX ETS project archive (.knxproj) into structured
// JSON: bus topology, devices, building spaces and group addresses.
//
// The archive passphrase is read from GRAYLOGIC_ETS_PASSWORD, supplied by
// the credential store. It is never accepted as a flag or written to
// configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/archive"
	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/etsimport"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// passwordEnv names the variable carrying the archive passphrase.
const passwordEnv = "GRAYLOGIC_ETS_PASSWORD"

func main() {
	// Cancel on Ctrl+C or SIGTERM so staging stops between members.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds flag values shared by the subcommands.
type options struct {
	configPath   string
	summary      bool
	projectID    string
	installation int
}

// newRootCmd builds the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "etsdecode",
		Short:         "Decode KNX ETS project archives",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("GRAYLOGIC_CONFIG"),
		"path to the YAML configuration file (default: built-in defaults)")

	decode := &cobra.Command{
		Use:   "decode <archive.knxproj>",
		Short: "Stage an archive and print the decoded project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd.Context(), opts, args[0], out)
		},
	}
	decode.Flags().BoolVar(&opts.summary, "summary", false, "print entity counts instead of the full project")
	decode.Flags().StringVar(&opts.projectID, "project", "", "project ID to decode (default: decode.project_id)")
	decode.Flags().IntVar(&opts.installation, "installation", -1, "installation index (default: decode.installation)")

	stage := &cobra.Command{
		Use:   "stage <archive.knxproj>",
		Short: "Extract and prune an archive without decoding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd.Context(), opts, args[0], out)
		},
	}

	root.AddCommand(decode, stage)
	return root
}

// loadConfig reads the configuration file, or the defaults when none is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// decoderOptions maps configuration and flag overrides onto decoder options.
func decoderOptions(cfg *config.Config, opts *options) etsimport.Options {
	o := etsimport.Options{
		StagingRoot: cfg.Staging.Root,
		CacheFile:   cfg.Staging.CatalogCacheFile,
		WALMode:     cfg.Cache.WALMode,
		BusyTimeout: cfg.Cache.BusyTimeout,
		Parallelism: cfg.Decode.Parallelism,
		ProjectID:   cfg.Decode.ProjectID,
	}
	if opts.projectID != "" {
		o.ProjectID = opts.projectID
	}

	installation := cfg.Decode.Installation
	if opts.installation >= 0 {
		installation = opts.installation
	}
	if installation >= 0 {
		o.Installation = &installation
	}
	return o
}

// decodeOutput is the full JSON document printed by decode.
type decodeOutput struct {
	DecodeID string              `json:"decode_id"`
	CacheHit bool                `json:"cache_hit"`
	Project  *etsimport.Project  `json:"project"`
	Warnings []etsimport.Warning `json:"warnings"`
}

func runDecode(ctx context.Context, opts *options, archivePath string, out io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	dec := etsimport.NewDecoder(decoderOptions(cfg, opts), log)
	res, err := dec.Decode(ctx, archivePath, os.Getenv(passwordEnv))
	if err != nil {
		return err
	}
	summary := res.Summary(time.Now())

	publishSummary(cfg, res, summary, log)
	recordDecodeRun(cfg, summary, log)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if opts.summary {
		return enc.Encode(summary)
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []etsimport.Warning{}
	}
	return enc.Encode(decodeOutput{
		DecodeID: res.DecodeID,
		CacheHit: res.CacheHit,
		Project:  res.Project,
		Warnings: warnings,
	})
}

func runStage(ctx context.Context, opts *options, archivePath string, out io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	dir, err := archive.NewStager(cfg.Staging.Root, log).Stage(ctx, archivePath, os.Getenv(passwordEnv))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, dir)
	return err
}

// publishSummary sends the summary to MQTT when enabled. The decode has
// already succeeded, so broker problems are logged rather than returned.
func publishSummary(cfg *config.Config, res *etsimport.Result, summary etsimport.Summary, log *logging.Logger) {
	if !cfg.MQTT.Enabled {
		return
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("mqtt unavailable, summary not published", "error", err)
		return
	}
	defer client.Close() //nolint:errcheck // Best effort disconnect

	topics := mqtt.Topics{}
	if err := client.PublishJSON(topics.ProjectSummary(summary.ProjectID), summary, true); err != nil {
		log.Warn("publishing project summary failed", "error", err)
		return
	}
	event := struct {
		etsimport.Summary
		Warnings []etsimport.Warning `json:"warning_details"`
	}{summary, res.Warnings}
	if err := client.PublishJSON(topics.DecodeEvent(summary.DecodeID), event, false); err != nil {
		log.Warn("publishing decode event failed", "error", err)
		return
	}
	log.Info("decode summary published", "project_id", summary.ProjectID)
}

// recordDecodeRun writes decode statistics to InfluxDB when enabled.
func recordDecodeRun(cfg *config.Config, s etsimport.Summary, log *logging.Logger) {
	if !cfg.InfluxDB.Enabled {
		return
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		log.Warn("influxdb unavailable, statistics not recorded", "error", err)
		return
	}
	client.SetOnError(func(err error) {
		log.Warn("influxdb write failed", "error", err)
	})

	client.WriteDecodeRun(influxdb.DecodeRun{
		ProjectID:          s.ProjectID,
		DecodeID:           s.DecodeID,
		CacheHit:           s.CacheHit,
		Duration:           time.Duration(s.DurationMS) * time.Millisecond,
		Finished:           s.Finished,
		Areas:              s.Areas,
		Lines:              s.Lines,
		Devices:            s.Devices,
		GroupAddresses:     s.GroupAddresses,
		Spaces:             s.Spaces,
		Products:           s.Catalog.Products,
		Hardware2Programs:  s.Catalog.Hardware2Programs,
		ComObjects:         s.Catalog.ComObjects,
		Datapoints:         s.Catalog.Datapoints,
		UnresolvedWarnings: s.Warnings,
	})

	// Close flushes the pending batch.
	if err := client.Close(); err != nil {
		log.Warn("closing influxdb client failed", "error", err)
	}
}
