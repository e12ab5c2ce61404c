package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"soxguard/internal/logger"
	"soxguard/internal/management"
	"soxguard/internal/rules"
	"soxguard/pkg/bootstrap"
	"soxguard/pkg/logging"
)

func importRulesCmd() *cobra.Command {
	var (
		rulesFile string
		changedBy string
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "import-rules",
		Short: "Replace the stored rule set with the contents of a YAML or JSON file",
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
			writer, ok := repo.(rules.Writer)
			if !ok {
				return fmt.Errorf("rule source %q does not accept imports", cfg.Rules.Source)
			}

			var opts []management.ServiceOption
			if topic := cfg.Broker.Kafka.ConfigUpdateTopic; notify && cfg.KafkaEnabled() && topic != "" {
				base := bootstrap.NewBase(cfg, log)
				if err := base.InitProducer(); err != nil {
					return err
				}
				defer base.ShutdownBroker()
				opts = append(opts, management.WithNotifier(management.NewRuleEventProducer(base.Producer, topic)))
			}

			svc, err := management.NewService(writer, repo, log, opts...)
			if err != nil {
				return err
			}

			defs, err := rules.NewFileRepository(rulesFile).Load(ctx)
			if err != nil {
				return err
			}

			result, err := svc.ImportRules(ctx, defs, changedBy)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&rulesFile, "file", "", "Path to the rule definitions file (required)")
	cmd.Flags().StringVar(&changedBy, "changed-by", "", "Operator recorded on the rule update event")
	cmd.Flags().BoolVar(&notify, "notify", true, "Publish a rule update event so running replicas reload")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
