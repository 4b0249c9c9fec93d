package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fireflybt/fireflybt/internal/config"
	"github.com/fireflybt/fireflybt/internal/firefly"
	"github.com/fireflybt/fireflybt/internal/importer"
	"github.com/fireflybt/fireflybt/internal/logger"
	"github.com/fireflybt/fireflybt/internal/resolver"
	"github.com/fireflybt/fireflybt/internal/submit"
)

func newImportCommand() *cobra.Command {
	var configPath string
	var format string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <statement-file>",
		Short: "Parse a statement and submit new transactions to Firefly III",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Import.Format
			}
			return runImport(cmd.Context(), cfg, args[0], format, dryRun)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to fireflybt.yaml")
	cmd.Flags().StringVar(&format, "format", "", "statement format (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse, classify and resolve without submitting")

	return cmd
}

// streamParser is a Parser that can also emit rows incrementally.
type streamParser interface {
	ParseStream(ctx context.Context, r io.Reader, buffer int) <-chan importer.Result
}

// streamBuffer bounds how far parsing can run ahead of submission.
const streamBuffer = 16

// runImport is the batch pipeline: parse -> resolve -> dedup -> submit, one
// record at a time. An unresolved account aborts the whole run so the
// operator can add the missing account mapping first; ledger rejections are
// reported per record and do not stop the rest.
func runImport(ctx context.Context, cfg *config.Config, path, format string, dryRun bool) error {
	log := logger.New()
	ctx = logger.WithContext(ctx, log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return fmt.Errorf("unknown statement format %q", format)
	}
	sp, ok := parser.(streamParser)
	if !ok {
		return fmt.Errorf("format %q does not support streaming", format)
	}

	client := firefly.NewClient(cfg.Firefly.URL, cfg.Firefly.Token)

	session, err := resolver.NewSession(ctx, client)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	// Cancel the producer if the run aborts early.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	submitter := submit.NewSubmitter(client, cfg.Import.LogRoot)

	var created, exists, failed int
	for res := range sp.ParseStream(streamCtx, f, streamBuffer) {
		if res.Err != nil {
			return fmt.Errorf("parsing %s: %w", path, res.Err)
		}

		txn := res.Transaction
		if err := session.Resolve(&txn); err != nil {
			return err
		}

		if dryRun {
			log.Info().
				Str("external_id", txn.ExternalID).
				Str("type", string(txn.Type)).
				Str("amount", txn.Amount.String()).
				Str("description", txn.Description).
				Msg("dry run: would submit")
			continue
		}

		switch outcome := submitter.Submit(ctx, txn); outcome.Status {
		case submit.StatusCreated:
			created++
		case submit.StatusExists:
			exists++
		case submit.StatusFailed:
			failed++
		}
	}

	if dryRun {
		return nil
	}

	log.Info().
		Int("created", created).
		Int("already_exists", exists).
		Int("failed", failed).
		Msg("import finished")

	if failed > 0 {
		return fmt.Errorf("%d transaction(s) failed to submit, see %s/logs/submissions.jsonl", failed, cfg.Import.LogRoot)
	}
	return nil
}
