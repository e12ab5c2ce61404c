package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"soxguard/internal/api"
	"soxguard/internal/broker"
	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/dedup"
	"soxguard/internal/events"
	"soxguard/internal/logger"
	"soxguard/internal/management"
	"soxguard/internal/rules"
	"soxguard/internal/validation"
	"soxguard/pkg/bootstrap"
	"soxguard/pkg/health"
	"soxguard/pkg/logging"
	"soxguard/pkg/metrics"
	"soxguard/pkg/migrations"
	"soxguard/pkg/ratelimit"
	"soxguard/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	dbs            *bootstrap.Databases
	ruleRepo       rules.Repository
	rules          *rules.Service
	ruleAdmin      *management.Service
	validator      *validation.Validator
	emitter        *events.Emitter
	guard          *dedup.Guard
	limiter        *ratelimit.Store
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		dbs:         &bootstrap.Databases{},
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterValidationMetrics()
	metrics.RegisterRuleStoreMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initValidation(ctx); err != nil {
		return fmt.Errorf("failed to initialize validation: %w", err)
	}

	if a.needsProducer() {
		metrics.RegisterBrokerMetrics()
		if err := a.InitProducer(); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	}
	if a.Config.Events.Transport == constants.TransportKafka {
		if err := a.InitEventProducer(); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	}

	emitter, err := events.NewEmitterFromConfig(a.Config, a.EventProducer, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize events transport: %w", err)
	}
	a.emitter = emitter

	if a.Config.Deduplication.Enabled {
		metrics.RegisterDedupMetrics()
		repo := dedup.NewCircuitBreakerRepository(dedup.NewRedisRepository(a.dbs.Redis), a.Config.CircuitBreaker, a.Logger)
		guard, err := dedup.NewGuard(repo, a.Config.Deduplication, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize deduplication: %w", err)
		}
		a.guard = guard
	}

	if err := a.initRuleAdmin(); err != nil {
		return fmt.Errorf("failed to initialize rule import: %w", err)
	}

	a.initHTTPServer()
	return nil
}

// initRuleAdmin enables rule imports when the rule source is writable.
func (a *App) initRuleAdmin() error {
	writer, ok := a.ruleRepo.(rules.Writer)
	if !ok {
		return nil
	}

	opts := []management.ServiceOption{management.WithReloader(a.rules)}
	if topic := a.Config.Broker.Kafka.ConfigUpdateTopic; a.Producer != nil && topic != "" {
		opts = append(opts, management.WithNotifier(management.NewRuleEventProducer(a.Producer, topic)))
	}

	svc, err := management.NewService(writer, a.ruleRepo, a.Logger, opts...)
	if err != nil {
		return err
	}
	a.ruleAdmin = svc
	return nil
}

func (a *App) needsProducer() bool {
	return a.Config.KafkaEnabled() || a.Config.Events.Transport == constants.TransportKafka
}

func (a *App) initDatabases(ctx context.Context) error {
	dbs, err := a.dbConnector.Connect(ctx)
	if err != nil {
		return err
	}
	a.dbs = dbs

	if !a.Config.Database.RunMigrations {
		return nil
	}
	if dbs.Postgres != nil {
		if err := rules.Migrate(dbs.Postgres); err != nil {
			return err
		}
		a.Logger.Info("PostgreSQL migrations applied")
	}
	if dbs.MongoDB != nil {
		if err := migrations.EnsureRuleCollections(ctx, dbs.MongoDB); err != nil {
			return err
		}
		a.Logger.Info("MongoDB indexes ensured")
	}
	return nil
}

func newRuleRepository(cfg *config.Config, dbs *bootstrap.Databases) (rules.Repository, error) {
	switch cfg.Rules.Source {
	case constants.RuleSourceFile:
		return rules.NewFileRepository(cfg.Rules.File), nil
	case constants.RuleSourcePostgres:
		if dbs.Postgres == nil {
			return nil, fmt.Errorf("postgres rule source without a database connection")
		}
		return rules.NewPostgresRepository(dbs.Postgres), nil
	case constants.RuleSourceMongoDB:
		if dbs.MongoDB == nil {
			return nil, fmt.Errorf("mongodb rule source without a database connection")
		}
		return rules.NewMongoRepository(dbs.MongoDB), nil
	default:
		return nil, fmt.Errorf("unknown rule source: %q", cfg.Rules.Source)
	}
}

func (a *App) initValidation(ctx context.Context) error {
	repo, err := newRuleRepository(a.Config, a.dbs)
	if err != nil {
		return err
	}

	svc, err := rules.NewService(repo, a.Config.Rules, a.Logger)
	if err != nil {
		return err
	}
	if err := svc.LoadWithRetry(ctx); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	a.ruleRepo = repo
	a.rules = svc

	validator, err := validation.NewValidator(svc, a.Config.Rules.UnknownIntegration, a.Logger)
	if err != nil {
		return err
	}
	a.validator = validator
	return nil
}

func (a *App) initHTTPServer() {
	registry := health.NewCheckerRegistry()
	if a.dbs.Postgres != nil {
		registry.Register(health.NewPostgreSQLChecker(a.dbs.Postgres))
	}
	if a.dbs.Mongo != nil {
		registry.Register(health.NewMongoDBChecker(a.dbs.Mongo))
	}
	if a.dbs.Redis != nil {
		registry.Register(health.NewRedisChecker(a.dbs.Redis))
	}
	registry.Register(health.CheckFunc{
		CheckName: "rules",
		Fn: func(context.Context) error {
			if a.rules.Snapshot().LoadedAt().IsZero() {
				return errors.New("no rule set loaded")
			}
			return nil
		},
	})

	if a.Config.API.RateLimit.Enabled {
		metrics.RegisterAPIMetrics()
		a.limiter = ratelimit.NewStore(a.Config.API.RateLimit)
	}

	handler := api.NewHandler(a.validator, a.emitter, a.rules, a.Logger)
	var extra []api.RouteRegistrar
	if a.ruleAdmin != nil {
		extra = append(extra, management.NewHandler(a.ruleAdmin, a.Logger))
	}
	if !a.Config.API.Enabled {
		handler = nil
		extra = nil
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      api.NewRouter(handler, registry, a.limiter, a.Config, a.Logger, extra...),
		ReadTimeout:  time.Duration(a.Config.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.Config.Server.WriteTimeoutSeconds) * time.Second,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	runCtx := logging.WithServiceName(gCtx, constants.ServiceName)

	g.Go(func() error {
		a.Logger.InfowCtx(runCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.rules.StartReloader(gCtx)
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}

	if a.Config.KafkaEnabled() {
		if err := a.startConsumers(g, gCtx, runCtx); err != nil {
			return err
		}
	}

	return g.Wait()
}

func (a *App) startConsumers(g *errgroup.Group, gCtx, runCtx context.Context) error {
	kafkaCfg := a.Config.Broker.Kafka

	intakeConsumer, err := a.NewConsumer(kafkaCfg.GroupID, constants.ServiceName)
	if err != nil {
		return err
	}
	intake := NewIntake(a.validator, a.emitter, a.guardOrNil(), a.Logger)
	g.Go(func() error {
		a.Logger.InfowCtx(runCtx, "Starting validation request consumer", "topic", kafkaCfg.InputTopic)
		return intakeConsumer.Consume(gCtx, kafkaCfg.InputTopic, intake.HandleMessage)
	})

	if kafkaCfg.ConfigUpdateTopic == "" {
		return nil
	}

	// Every replica must see every rule update, so the group is per instance.
	rulesGroup := fmt.Sprintf("%s-rules-%s", kafkaCfg.GroupID, uuid.New().String())
	rulesConsumer, err := a.NewConsumer(rulesGroup, constants.ServiceName)
	if err != nil {
		a.Logger.WarnwCtx(runCtx, "Failed to create rule update consumer, event-driven reload disabled", "error", err)
		return nil
	}
	ruleHandler := rules.NewHandler(a.rules, a.Logger)
	g.Go(func() error {
		a.Logger.InfowCtx(runCtx, "Starting rule update consumer", "topic", kafkaCfg.ConfigUpdateTopic)
		return rulesConsumer.Consume(gCtx, kafkaCfg.ConfigUpdateTopic, broker.HandlerFunc(ruleHandler.HandleRuleUpdateEvent))
	})
	return nil
}

// guardOrNil keeps a nil *dedup.Guard from becoming a non-nil interface.
func (a *App) guardOrNil() redeliveryGuard {
	if a.guard == nil {
		return nil
	}
	return a.guard
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.dbs)...)
		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
