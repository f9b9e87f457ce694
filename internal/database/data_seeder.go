package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
	"github.com/locvowork/employee_records/apigateway/pkg/dataflow"
)

var (
	departments = []string{"Finance", "HR", "Marketing", "Sales", "SWE-1", "SWE-2"}
	firstNames  = []string{"Aastha", "Amrita", "Bao", "Carlos", "Dara", "Elif", "Hana", "Ivan", "Linh", "Mateo", "Noor", "Priya"}
	lastNames   = []string{"Nguyen", "Sharma", "Garcia", "Kim", "Okafor", "Rossi", "Tran", "Yilmaz", "Silva", "Chen"}
	skillPool   = []string{"Python", "Go", "MongoDB", "APIs", "SQL", "Docker", "Kubernetes", "React", "Excel", "Communication"}
)

// Creator is the write side the seeder drives.
type Creator interface {
	Create(ctx context.Context, req domain.CreateEmployeeRequest) error
	ClearAll(ctx context.Context) (int64, error)
}

// BulkIndexer mirrors seeded records in bulk.
type BulkIndexer interface {
	BulkIndexEmployees(ctx context.Context, employees []domain.Employee) error
	ClearIndex(ctx context.Context) error
}

// Seed presets, by record count.
var seedPresets = map[string]int{
	"small":  50,
	"medium": 500,
	"large":  5000,
	"xlarge": 50000,
}

// PresetCount returns the record count of a named preset.
func PresetCount(preset string) (int, error) {
	n, ok := seedPresets[preset]
	if !ok {
		return 0, fmt.Errorf("unknown preset %q", preset)
	}
	return n, nil
}

// SeedOptions controls one seeding run.
type SeedOptions struct {
	Count     int
	Prefix    string
	Seed      int64
	Workers   int
	BatchSize int
}

// SeedReport summarizes a seeding run.
type SeedReport struct {
	Created int64
	Skipped int64
	Failed  int64
	Indexed int64
}

type DataSeeder struct {
	svc   Creator
	repo  domain.EmployeeRepository
	index BulkIndexer
}

// NewDataSeeder creates a seeder. index may be nil when the search mirror is
// disabled.
func NewDataSeeder(svc Creator, repo domain.EmployeeRepository, index BulkIndexer) *DataSeeder {
	return &DataSeeder{svc: svc, repo: repo, index: index}
}

// SampleEmployees returns count deterministic sample records for seed.
func SampleEmployees(count int, prefix string, seed int64) []domain.CreateEmployeeRequest {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

	reqs := make([]domain.CreateEmployeeRequest, count)
	for i := range reqs {
		id := fmt.Sprintf("%s%05d", prefix, i+1)
		name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
		dept := departments[rng.Intn(len(departments))]
		salary := float64(40000 + rng.Intn(221)*500)
		joined := domain.DateOf(base.AddDate(0, 0, rng.Intn(3650)))

		skills := make([]string, 0, 3)
		for _, idx := range rng.Perm(len(skillPool))[:rng.Intn(4)] {
			skills = append(skills, skillPool[idx])
		}

		reqs[i] = domain.CreateEmployeeRequest{
			EmployeeID:  &id,
			Name:        &name,
			Department:  &dept,
			Salary:      &salary,
			JoiningDate: &joined,
			Skills:      skills,
		}
	}
	return reqs
}

// SeedData creates sample records through the service. Existing employee
// IDs are skipped, so reruns are safe. Created records are bulk indexed
// when a search mirror is configured.
func (ds *DataSeeder) SeedData(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	start := time.Now()
	if opts.BatchSize < 1 {
		opts.BatchSize = 100
	}
	logger.InfoLog(ctx, "Seeding %d employees with %d workers", opts.Count, opts.Workers)

	var report SeedReport
	reqs := SampleEmployees(opts.Count, opts.Prefix, opts.Seed)

	created := dataflow.Map(ctx, dataflow.From(ctx, reqs...),
		func(ctx context.Context, req domain.CreateEmployeeRequest) (string, error) {
			if err := ds.svc.Create(ctx, req); err != nil {
				return "", err
			}
			atomic.AddInt64(&report.Created, 1)
			return *req.EmployeeID, nil
		},
		dataflow.WithWorkers(opts.Workers),
		dataflow.WithRetry(3, dataflow.ConstantBackoff(200*time.Millisecond)),
		dataflow.WithRetryIf(isTransient),
		dataflow.WithErrorHandler(func(err error) bool {
			if errors.Is(err, domain.ErrConflict) {
				atomic.AddInt64(&report.Skipped, 1)
				return true
			}
			atomic.AddInt64(&report.Failed, 1)
			logger.WarnLog(ctx, "Failed to seed employee: %v", err)
			return true
		}),
	)

	var err error
	if ds.index == nil {
		err = dataflow.ForEach(ctx, created, func(context.Context, string) error { return nil })
	} else {
		err = ds.indexCreated(ctx, created, opts, &report)
	}
	if err != nil {
		return report, err
	}

	logger.InfoLog(ctx, "Seeded %d employees (%d skipped, %d failed, %d indexed) in %v",
		report.Created, report.Skipped, report.Failed, report.Indexed, time.Since(start))
	return report, nil
}

func (ds *DataSeeder) indexCreated(ctx context.Context, created dataflow.Stream[string], opts SeedOptions, report *SeedReport) error {
	stored := dataflow.Map(ctx, created, func(ctx context.Context, id string) (domain.Employee, error) {
		e, err := ds.repo.FindByEmployeeID(ctx, id)
		if err != nil {
			return domain.Employee{}, err
		}
		return *e, nil
	}, dataflow.WithWorkers(opts.Workers), dataflow.WithErrorHandler(func(err error) bool {
		logger.WarnLog(ctx, "Failed to load seeded employee: %v", err)
		return true
	}))

	return dataflow.ForEach(ctx, dataflow.Batch(ctx, stored, opts.BatchSize), func(ctx context.Context, batch []domain.Employee) error {
		if err := ds.index.BulkIndexEmployees(ctx, batch); err != nil {
			return err
		}
		atomic.AddInt64(&report.Indexed, int64(len(batch)))
		return nil
	}, dataflow.WithRetry(2, dataflow.ConstantBackoff(time.Second)))
}

// ClearData removes every record and empties the search mirror.
func (ds *DataSeeder) ClearData(ctx context.Context) (int64, error) {
	n, err := ds.svc.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	if ds.index != nil {
		if err := ds.index.ClearIndex(ctx); err != nil {
			return n, fmt.Errorf("records cleared but index was not: %w", err)
		}
	}
	return n, nil
}

// isTransient reports whether a create failure is worth retrying. Domain
// errors are final.
func isTransient(err error) bool {
	var derr *domain.Error
	return !errors.As(err, &derr)
}
