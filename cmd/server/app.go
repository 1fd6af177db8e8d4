package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spendwise/internal/auth/directory"
	authhandler "spendwise/internal/auth/handler"
	authmetrics "spendwise/internal/auth/metrics"
	authmodels "spendwise/internal/auth/models"
	authservice "spendwise/internal/auth/service"
	"spendwise/internal/auth/store/revocation"
	"spendwise/internal/auth/store/throttle"
	userstore "spendwise/internal/auth/store/user"
	expensehandler "spendwise/internal/expense/handler"
	expensemetrics "spendwise/internal/expense/metrics"
	expenseservice "spendwise/internal/expense/service"
	expensestore "spendwise/internal/expense/store"
	friendshiphandler "spendwise/internal/friendship/handler"
	friendshipmetrics "spendwise/internal/friendship/metrics"
	friendshipservice "spendwise/internal/friendship/service"
	friendshipstore "spendwise/internal/friendship/store"
	grouphandler "spendwise/internal/group/handler"
	groupmetrics "spendwise/internal/group/metrics"
	groupservice "spendwise/internal/group/service"
	groupstore "spendwise/internal/group/store/group"
	membershipstore "spendwise/internal/group/store/membership"
	jwttoken "spendwise/internal/jwt_token"
	notificationhandler "spendwise/internal/notification/handler"
	notificationmetrics "spendwise/internal/notification/metrics"
	"spendwise/internal/notification/outbox"
	notificationservice "spendwise/internal/notification/service"
	notificationstore "spendwise/internal/notification/store"
	"spendwise/internal/platform/config"
	"spendwise/internal/platform/kafka"
	"spendwise/internal/platform/metrics"
	"spendwise/internal/platform/postgres"
	"spendwise/internal/platform/redis"
	"spendwise/internal/ratelimit/service/authlockout"
	lockoutstore "spendwise/internal/ratelimit/store/authlockout"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/httputil"
	authmw "spendwise/pkg/platform/middleware/auth"
	"spendwise/pkg/platform/middleware/metadata"
	request "spendwise/pkg/platform/middleware/request"
	"spendwise/pkg/platform/middleware/requesttime"
	"spendwise/pkg/platform/tx"
)

type app struct {
	router   http.Handler
	relay    *outbox.Relay
	storage  string
	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
}

// userStore serves both the auth service and the profile directory.
type userStore interface {
	authservice.UserStore
	FindByIDs(ctx context.Context, ids []id.UserID) ([]*authmodels.User, error)
}

// stores groups every persistence port. Postgres and in-memory implementations
// are interchangeable behind it.
type stores struct {
	users         userStore
	expenses      expenseservice.Store
	friendships   friendshipservice.Store
	groups        groupservice.GroupStore
	memberships   groupservice.MembershipStore
	lockouts      authlockout.Store
	notifications notificationservice.Store
	outbox        interface {
		notificationservice.OutboxStore
		outbox.Store
	}
	runner tx.Runner
}

// newApp wires every context. Collectors register on reg, which /metrics serves.
func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	st := newStores(db)
	a.storage = "memory"
	if db != nil {
		a.storage = "postgres"
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = rc

	publisher, err := a.newPublisher(ctx, cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}

	lockout := authlockout.New(st.lockouts,
		authlockout.WithLogger(logger),
		authlockout.WithConfig(authlockout.Config{
			AttemptsPerWindow: cfg.Auth.LockoutAttempts,
			WindowDuration:    cfg.Auth.LockoutWindow,
			HardLockThreshold: cfg.Auth.LockoutDailyThreshold,
			HardLockDuration:  cfg.Auth.LockoutHardLockDuration,
		}),
	)
	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	authOpts := []authservice.Option{
		authservice.WithLogger(logger),
		authservice.WithMetrics(authmetrics.New(reg)),
		authservice.WithTxRunner(st.runner),
		authservice.WithLockout(lockout),
		authservice.WithConfig(authservice.Config{
			TokenTTL:     cfg.Auth.TokenTTL,
			CodeTTL:      cfg.Auth.CodeTTL,
			CodeCooldown: cfg.Auth.CodeRequestCooldown,
		}),
	}
	var trl authservice.TokenRevocationList = revocation.NewInMemoryTRL()
	if rc != nil {
		trl = revocation.NewRedisTRL(rc.Client)
		authOpts = append(authOpts, authservice.WithThrottle(throttle.NewRedis(rc.Client)))
	}
	authSvc := authservice.New(st.users, trl, jwtService, authOpts...)
	requireAuth := authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), authSvc, logger)

	dir := directory.New(st.users)
	notifMetrics := notificationmetrics.New(reg)
	notifSvc := notificationservice.New(st.notifications, st.outbox, dir,
		notificationservice.WithLogger(logger),
		notificationservice.WithMetrics(notifMetrics),
		notificationservice.WithTxRunner(st.runner),
	)
	expenseSvc := expenseservice.New(st.expenses,
		expenseservice.WithLogger(logger),
		expenseservice.WithMetrics(expensemetrics.New(reg)),
	)
	friendshipSvc := friendshipservice.New(st.friendships, dir, notifSvc,
		friendshipservice.WithLogger(logger),
		friendshipservice.WithMetrics(friendshipmetrics.New(reg)),
		friendshipservice.WithTxRunner(st.runner),
	)
	groupSvc := groupservice.New(st.groups, st.memberships, dir, notifSvc,
		groupservice.WithLogger(logger),
		groupservice.WithMetrics(groupmetrics.New(reg)),
		groupservice.WithTxRunner(st.runner),
	)

	a.relay = outbox.NewRelay(st.outbox, st.runner, publisher,
		outbox.WithLogger(logger),
		outbox.WithMetrics(notifMetrics),
		outbox.WithTopic(cfg.Kafka.NotificationTopic),
		outbox.WithPollInterval(cfg.Outbox.PollInterval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
	)

	r := chi.NewRouter()
	httpMetrics := metrics.New(reg)
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(logger))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(httpMetrics.Latency)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	authhandler.New(authSvc, logger, requireAuth).Register(r)
	expensehandler.New(expenseSvc, logger, requireAuth).Register(r)
	friendshiphandler.New(friendshipSvc, logger, requireAuth).Register(r)
	grouphandler.New(groupSvc, logger, requireAuth).Register(r)
	notificationhandler.New(notifSvc, logger, requireAuth).Register(r)
	a.router = r

	ok = true
	return a, nil
}

func newStores(db *sql.DB) stores {
	if db != nil {
		return stores{
			users:         userstore.NewPostgres(db),
			expenses:      expensestore.NewPostgres(db),
			friendships:   friendshipstore.NewPostgres(db),
			groups:        groupstore.NewPostgres(db),
			memberships:   membershipstore.NewPostgres(db),
			lockouts:      lockoutstore.NewPostgres(db),
			notifications: notificationstore.NewPostgres(db),
			outbox:        outbox.NewPostgres(db),
			runner:        tx.NewPostgresRunner(db),
		}
	}

	users := userstore.NewInMemoryUserStore()
	expenses := expensestore.NewInMemory()
	friendships := friendshipstore.NewInMemory()
	groups := groupstore.NewInMemoryGroupStore()
	memberships := membershipstore.NewInMemoryMembershipStore()
	notifications := notificationstore.NewInMemory()
	box := outbox.NewInMemory()
	return stores{
		users:         users,
		expenses:      expenses,
		friendships:   friendships,
		groups:        groups,
		memberships:   memberships,
		lockouts:      lockoutstore.NewInMemory(),
		notifications: notifications,
		outbox:        box,
		runner:        tx.NewMemoryRunner(),
	}
}

// newPublisher connects to Kafka and bootstraps the notification topic. Without
// brokers, relayed events go to the log instead.
func (a *app) newPublisher(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (outbox.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return outbox.NewLogPublisher(logger), nil
	}
	producer, err := kafka.NewProducer(cfg.Brokers, logger)
	if err != nil {
		return nil, err
	}
	a.producer = producer
	if err := producer.Ping(ctx); err != nil {
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	if err := producer.EnsureTopic(ctx, cfg.NotificationTopic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		return nil, err
	}
	return producer, nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "postgres unavailable", Storage: a.storage})
			return
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "redis unavailable", Storage: a.storage})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: a.storage})
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
