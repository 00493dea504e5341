package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invoiceflow/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const refreshConcurrency = 5

// StatsRefresher recomputes and caches a tenant's dashboard figures.
type StatsRefresher interface {
	RefreshStats(ctx context.Context, tenantID uuid.UUID) (*models.InvoiceStats, error)
}

type TenantLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// JobScheduler runs periodic maintenance jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	stats     StatsRefresher
	tenants   TenantLister
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers its jobs. It does not start them.
func NewJobScheduler(stats StatsRefresher, tenants TenantLister, statsInterval time.Duration) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		stats:     stats,
		tenants:   tenants,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(statsInterval); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	return js, nil
}

func (js *JobScheduler) Start() {
	slog.Info("starting background job scheduler", "jobs", len(js.jobs))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	slog.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// Jobs returns the registered job names.
func (js *JobScheduler) Jobs() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

func (js *JobScheduler) registerJobs(statsInterval time.Duration) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	statsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(statsInterval),
		gocron.NewTask(js.refreshInvoiceStats, context.Background()),
		gocron.WithName("invoice-stats-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create stats refresh job: %w", err)
	}
	js.jobs["invoice-stats-refresh"] = statsJob

	return nil
}

// refreshInvoiceStats warms the stats cache for every tenant.
func (js *JobScheduler) refreshInvoiceStats(ctx context.Context) error {
	tenantIDs, err := js.tenants.ListIDs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list tenants for stats refresh", "error", err)
		return err
	}

	semaphore := make(chan struct{}, refreshConcurrency)
	var wg sync.WaitGroup

	for _, tenantID := range tenantIDs {
		wg.Add(1)
		go func(tenantID uuid.UUID) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if _, err := js.stats.RefreshStats(ctx, tenantID); err != nil {
				slog.ErrorContext(ctx, "failed to refresh invoice stats", "tenant_id", tenantID, "error", err)
			}
		}(tenantID)
	}

	wg.Wait()
	slog.InfoContext(ctx, "refreshed invoice stats", "tenants", len(tenantIDs))
	return nil
}
