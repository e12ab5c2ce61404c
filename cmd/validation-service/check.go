package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"soxguard/internal/constants"
	"soxguard/internal/events"
	"soxguard/internal/logger"
	"soxguard/internal/rules"
	"soxguard/internal/validation"
	"soxguard/pkg/bootstrap"
	"soxguard/pkg/logging"
	"soxguard/pkg/models"
)

var errPairInvalid = errors.New("integration pair is invalid")

type checkOptions struct {
	SourceIntegrationID      string
	DestinationIntegrationID string
	SourceFile               string
	DestinationFile          string
	TransactionID            string
	Ingest                   bool
	FailOnInvalid            bool
}

// CheckReport is what the check command prints.
type CheckReport struct {
	TransactionID string                          `json:"transactionId"`
	Pair          validation.PairValidationResult `json:"pair"`
	Ingest        *events.IngestResult            `json:"ingest,omitempty"`
}

func checkCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate one source/destination payload pair and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			connector := bootstrap.NewDatabaseConnector(cfg, log)
			dbs, err := connector.Connect(ctx)
			if err != nil {
				return err
			}
			defer connector.ShutdownDatabases(context.Background(), dbs)

			repo, err := newRuleRepository(cfg, dbs)
			if err != nil {
				return err
			}
			svc, err := rules.NewService(repo, cfg.Rules, log)
			if err != nil {
				return err
			}
			if err := svc.ReloadRules(ctx, true); err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}

			validator, err := validation.NewValidator(svc, cfg.Rules.UnknownIntegration, log)
			if err != nil {
				return err
			}

			var emitter businessEventEmitter
			if opts.Ingest {
				base := bootstrap.NewBase(cfg, log)
				if cfg.Events.Transport == constants.TransportKafka {
					if err := base.InitEventProducer(); err != nil {
						return err
					}
				}
				defer base.ShutdownBroker()

				e, err := events.NewEmitterFromConfig(cfg, base.EventProducer, log)
				if err != nil {
					return err
				}
				emitter = e
			}

			return runCheck(ctx, opts, validator, emitter, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.SourceIntegrationID, "source", "", "Source integration ID (required)")
	cmd.Flags().StringVar(&opts.DestinationIntegrationID, "destination", "", "Destination integration ID (required)")
	cmd.Flags().StringVar(&opts.SourceFile, "source-payload", "", "Path to the source JSON payload (required)")
	cmd.Flags().StringVar(&opts.DestinationFile, "destination-payload", "", "Path to the destination JSON payload (required)")
	cmd.Flags().StringVar(&opts.TransactionID, "transaction-id", "", "Transaction ID (default: from the payload wrappers or a new UUID)")
	cmd.Flags().BoolVar(&opts.Ingest, "ingest", false, "Report the result as a business event through the configured transport")
	cmd.Flags().BoolVar(&opts.FailOnInvalid, "fail-on-invalid", false, "Exit non-zero when the pair is invalid")
	for _, name := range []string{"source", "destination", "source-payload", "destination-payload"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func readPayload(path string) (models.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Value{}, fmt.Errorf("failed to read payload %s: %w", path, err)
	}
	v, err := models.Parse(data)
	if err != nil {
		return models.Value{}, fmt.Errorf("failed to parse payload %s: %w", path, err)
	}
	return v, nil
}

func runCheck(ctx context.Context, opts checkOptions, validator pairValidator, emitter businessEventEmitter, out io.Writer) error {
	source, err := readPayload(opts.SourceFile)
	if err != nil {
		return err
	}
	destination, err := readPayload(opts.DestinationFile)
	if err != nil {
		return err
	}

	req := &models.ValidationRequest{
		TransactionID:            opts.TransactionID,
		SourceIntegrationID:      opts.SourceIntegrationID,
		DestinationIntegrationID: opts.DestinationIntegrationID,
		SourcePayload:            source,
		DestinationPayload:       destination,
	}
	if req.ResolveTransactionID() == "" {
		req.TransactionID = uuid.New().String()
	}

	result, err := validator.ValidateIntegrationPair(ctx, validation.PairRequestFrom(*req))
	if err != nil {
		return err
	}

	report := CheckReport{TransactionID: req.ResolveTransactionID(), Pair: result}
	if emitter != nil {
		ingest := emitter.CreateBusinessEvent(ctx, events.BusinessEventRequestFrom(req, result))
		report.Ingest = &ingest
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return err
	}

	if report.Ingest != nil && !report.Ingest.Success {
		return fmt.Errorf("business event ingestion failed: %s", report.Ingest.Message)
	}
	if opts.FailOnInvalid && !result.IsValid {
		return errPairInvalid
	}
	return nil
}
