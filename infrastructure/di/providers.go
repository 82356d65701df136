package di

import (
	"context"
	"fmt"
	"net/http"

	"nodegraph/application/commands"
	"nodegraph/application/commands/bus"
	commandhandlers "nodegraph/application/commands/handlers"
	"nodegraph/application/importer"
	"nodegraph/application/ports"
	"nodegraph/application/queries"
	querybus "nodegraph/application/queries/bus"
	queryhandlers "nodegraph/application/queries/handlers"
	"nodegraph/application/services"
	domainconfig "nodegraph/domain/config"
	"nodegraph/domain/core/validators"
	"nodegraph/infrastructure/config"
	"nodegraph/infrastructure/persistence/breaker"
	"nodegraph/infrastructure/persistence/dynamodb"
	"nodegraph/infrastructure/persistence/memory"
	"nodegraph/infrastructure/persistence/sqlite"
	"nodegraph/interfaces/graphql"
	"nodegraph/interfaces/http/rest"
	pkgerrors "nodegraph/pkg/errors"
	"nodegraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const metricsNamespace = "nodegraph"

// Store bundles the node store with the import lock it supports, if any
type Store struct {
	Nodes  ports.NodeStore
	Locker importer.Locker
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// ProvideDomainConfig selects the business rules for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Store.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, honouring a custom
// endpoint such as DynamoDB Local
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.Store.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Store.Endpoint)
		}
	})
}

// ProvideStore opens the store named by STORE_URL and wraps it in the
// circuit breaker when enabled. The cleanup func closes the store.
func ProvideStore(ctx context.Context, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (*Store, func(), error) {
	var (
		store   = &Store{}
		cleanup = func() {}
	)

	switch cfg.Store.Kind {
	case config.StoreMemory:
		store.Nodes = memory.NewNodeRepository()

	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.Store.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		store.Nodes = repo
		cleanup = func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}

	case config.StoreDynamoDB:
		awsCfg, err := ProvideAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := ProvideDynamoDBClient(awsCfg, cfg)
		store.Nodes = dynamodb.NewNodeRepository(client, cfg.Store.Table, logger)
		store.Locker = dynamodb.NewDistributedLock(client, cfg.Store.Table, logger)

	default:
		return nil, nil, fmt.Errorf("unsupported store kind %q", cfg.Store.Kind)
	}

	if cfg.EnableBreaker {
		bcfg := breaker.DefaultConfig("store")
		bcfg.FailureRatio = cfg.BreakerFailureRatio
		bcfg.Timeout = cfg.BreakerTimeout
		store.Nodes = breaker.NewNodeRepository(store.Nodes, bcfg, metrics, logger)
	}

	logger.Info("Node store ready", zap.String("kind", cfg.Store.Kind), zap.Bool("breaker", cfg.EnableBreaker))
	return store, cleanup, nil
}

// ProvideNodeStore exposes the node store of a Store
func ProvideNodeStore(store *Store) ports.NodeStore {
	return store.Nodes
}

// ProvideNodeResolver creates the child resolver
func ProvideNodeResolver(store ports.NodeStore) *services.NodeResolver {
	return services.NewNodeResolver(store)
}

// ProvideNodeValidator creates the cross-node validator
func ProvideNodeValidator(domainCfg *domainconfig.DomainConfig) *validators.NodeValidator {
	return validators.NewNodeValidator(domainCfg)
}

// ProvideImporter creates the tree importer, holding the store's import
// lock when the store provides one
func ProvideImporter(
	store *Store,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *importer.Importer {
	imp := importer.NewImporter(store.Nodes, domainCfg, metrics, logger.Named("importer"))
	if store.Locker != nil {
		imp.WithLocker(store.Locker)
	}
	return imp
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) (interface{}, error)
}

// Handle implements bus.CommandHandler
func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	store ports.NodeStore,
	resolver *services.NodeResolver,
	validator *validators.NodeValidator,
	domainCfg *domainconfig.DomainConfig,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middlewares := []bus.Middleware{bus.LoggingMiddleware(&zapLoggerAdapter{logger})}
	if cfg.EnableMetrics {
		middlewares = append(middlewares, bus.MetricsMiddleware(metrics))
	}
	commandBus := bus.NewCommandBus(middlewares...)

	addNodeHandler := commandhandlers.NewAddNodeHandler(store, resolver, domainCfg, logger)
	updateNodeHandler := commandhandlers.NewUpdateNodeHandler(store, resolver, validator, domainCfg, logger)
	addChildrenHandler := commandhandlers.NewAddChildrenHandler(store, resolver, validator, domainCfg, logger)

	registrations := []struct {
		cmd     bus.Command
		handler func(context.Context, bus.Command) (interface{}, error)
	}{
		{commands.AddNodeCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return addNodeHandler.Handle(ctx, cmd.(commands.AddNodeCommand))
		}},
		{commands.UpdateNodeCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return updateNodeHandler.Handle(ctx, cmd.(commands.UpdateNodeCommand))
		}},
		{commands.AddChildrenCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return addChildrenHandler.Handle(ctx, cmd.(commands.AddChildrenCommand))
		}},
	}

	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, &CommandHandlerAdapter{handler: reg.handler}); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

// Handle implements querybus.QueryHandler
func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	store ports.NodeStore,
	resolver *services.NodeResolver,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	var middlewares []querybus.Middleware
	if cfg.EnableMetrics {
		middlewares = append(middlewares, querybus.MetricsMiddleware(metrics))
	}
	queryBus := querybus.NewQueryBus(middlewares...)

	getNodeHandler := queryhandlers.NewGetNodeHandler(store, resolver, logger)
	findNodesHandler := queryhandlers.NewFindNodesHandler(store, resolver, logger)

	registrations := []struct {
		query   querybus.Query
		handler func(context.Context, querybus.Query) (interface{}, error)
	}{
		{queries.GetNodeByIDQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return getNodeHandler.Handle(ctx, q.(queries.GetNodeByIDQuery))
		}},
		{queries.GetNodesByTypeQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return findNodesHandler.HandleByType(ctx, q.(queries.GetNodesByTypeQuery))
		}},
		{queries.GetNodesByNameQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return findNodesHandler.HandleByName(ctx, q.(queries.GetNodesByNameQuery))
		}},
		{queries.ListNodesQuery{}, func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return findNodesHandler.HandleList(ctx, q.(queries.ListNodesQuery))
		}},
	}

	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, &QueryHandlerAdapter{handler: reg.handler}); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideErrorHandler creates the REST error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideGraphQLHandler builds the schema and its HTTP handler
func ProvideGraphQLHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) (*graphql.Handler, error) {
	schema, err := graphql.NewSchema(commandBus, queryBus)
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	return graphql.NewHandler(schema, errorHandler, logger.Named("graphql")), nil
}

// ProvideHTTPHandler assembles the HTTP router
func ProvideHTTPHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	graphqlHandler *graphql.Handler,
	store ports.NodeStore,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) http.Handler {
	opts := rest.Options{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSOrigins,
	}
	if cfg.EnableMetrics {
		opts.Metrics = metrics
		opts.MetricsHandler = metrics.Handler()
	}
	return rest.NewRouter(commandBus, queryBus, graphqlHandler, store, errorHandler, opts, logger).Setup()
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
