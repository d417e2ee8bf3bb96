package systemtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logbookhq/logbook-server/internal/agents"
	internalhttp "github.com/logbookhq/logbook-server/internal/api/http"
	"github.com/logbookhq/logbook-server/internal/db"
	"github.com/logbookhq/logbook-server/internal/ingest"
	"github.com/logbookhq/logbook-server/internal/logs"
	"github.com/logbookhq/logbook-server/internal/metrics"
	"github.com/logbookhq/logbook-server/internal/sink"
	pgcontainer "github.com/logbookhq/logbook-server/systemtest/postgres"
	"github.com/logbookhq/logbook-server/systemtest/tests"
	"github.com/stretchr/testify/require"
)

const adminKey = "system-test-admin-key"

// memoryLogSink stands in for Elasticsearch; the system under test here is
// the HTTP surface plus the real Postgres store.
type memoryLogSink struct {
	count int
}

func (s *memoryLogSink) WriteOne(ctx context.Context, e *logs.Entry) (string, error) {
	s.count++
	return fmt.Sprintf("es-%d", s.count), nil
}

func (s *memoryLogSink) WriteBulk(ctx context.Context, entries []*logs.Entry) ([]sink.Result, error) {
	results := make([]sink.Result, len(entries))
	for i := range entries {
		s.count++
		results[i] = sink.Result{Ref: fmt.Sprintf("es-%d", s.count)}
	}
	return results, nil
}

type memoryMetricSink struct{}

func (s *memoryMetricSink) WriteOne(ctx context.Context, e *metrics.Entry) (string, error) {
	return fmt.Sprintf("%d", e.Timestamp.Unix()), nil
}

func (s *memoryMetricSink) WriteBulk(ctx context.Context, entries []*metrics.Entry) ([]sink.Result, error) {
	results := make([]sink.Result, len(entries))
	for i, e := range entries {
		results[i] = sink.Result{Ref: fmt.Sprintf("%d", e.Timestamp.Unix())}
	}
	return results, nil
}

func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping system test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.StartPostgres(ctx, "logbook", "logbook", "logbook")
	if err != nil {
		t.Skipf("could not start Postgres container (is Docker running?): %v", err)
	}
	t.Cleanup(func() {
		_ = pgcontainer.TerminatePostgres(ctx, container)
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(dbURL, "logbook"))

	pool, err := db.InitDB(ctx, dbURL, "logbook")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	agentService := agents.NewService(agents.NewPostgresStore(pool))
	services := &internalhttp.Services{
		AgentService:      agentService,
		LogCoordinator:    ingest.NewLogCoordinator(agentService, logs.NewStore(pool), &memoryLogSink{}),
		MetricCoordinator: ingest.NewMetricCoordinator(agentService, metrics.NewStore(pool), &memoryMetricSink{}),
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	internalhttp.SetupRoute(engine, internalhttp.Config{AdminAPIKey: adminKey}, services)

	t.Run("HealthCheck", func(t *testing.T) { tests.TestHealthCheck(t, engine) })
	t.Run("AgentLifecycle", func(t *testing.T) { tests.TestAgentLifecycle(t, engine, adminKey) })
	t.Run("LogIngestion", func(t *testing.T) { tests.TestLogIngestion(t, engine) })
	t.Run("MetricIngestion", func(t *testing.T) { tests.TestMetricIngestion(t, engine) })
}
