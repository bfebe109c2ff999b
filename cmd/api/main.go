package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/aws"
	"github.com/ksfood/orderflow/internal/catalog"
	"github.com/ksfood/orderflow/internal/counter"
	"github.com/ksfood/orderflow/internal/handlers"
	"github.com/ksfood/orderflow/internal/idempotency"
	"github.com/ksfood/orderflow/internal/metrics"
	"github.com/ksfood/orderflow/internal/orders"
	"github.com/ksfood/orderflow/internal/users"
)

func setupRouter(cfg handlers.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	clients, err := aws.NewClients(ctx)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	counters := counter.NewStore(clients.DynamoDB, os.Getenv("COUNTERS_TABLE"))
	// seed the order sequence up front so concurrent first orders never race creation
	if err := counters.Ensure(ctx, counter.OrderSequence); err != nil {
		logger.Fatal("failed to seed order sequence", zap.Error(err))
	}

	var cat orders.Catalog = catalog.NewStore(clients.DynamoDB, os.Getenv("PRODUCTS_TABLE"))
	if addr := os.Getenv("CATALOG_CACHE_ADDR"); addr != "" {
		ttl := 5 * time.Minute
		if raw := os.Getenv("CATALOG_CACHE_TTL_SECONDS"); raw != "" {
			if n, perr := strconv.Atoi(raw); perr == nil && n > 0 {
				ttl = time.Duration(n) * time.Second
			}
		}
		cat = catalog.NewCachedStore(cat, addr, ttl, logger)
	}

	var tokenTTL time.Duration
	if raw := os.Getenv("IDEMPOTENCY_TTL_HOURS"); raw != "" {
		if n, perr := strconv.Atoi(raw); perr == nil && n > 0 {
			tokenTTL = time.Duration(n) * time.Hour
		}
	}

	var notifier orders.Notifier
	if queueURL := os.Getenv("ORDERS_QUEUE_URL"); queueURL != "" {
		notifier = aws.NewPublisher(clients.SQS, queueURL)
	} else {
		logger.Warn("ORDERS_QUEUE_URL not set; new order notifications disabled")
	}

	svc := orders.NewService(
		orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE")),
		counters,
		cat,
		users.NewStore(clients.DynamoDB, os.Getenv("USERS_TABLE")),
		idempotency.NewStore(clients.DynamoDB, os.Getenv("IDEMPOTENCY_TABLE"), tokenTTL),
		notifier,
		metrics.NewEmitter(clients.CloudWatch, logger),
		logger,
	)

	r := setupRouter(handlers.Config{Service: svc, Logger: logger})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
