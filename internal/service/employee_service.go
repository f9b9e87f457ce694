package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Caller-facing messages.
const (
	MsgEmployeeExists   = "Employee ID already exists"
	MsgEmployeeNotFound = "Employee not found"
	MsgNoFieldsToUpdate = "No fields to update"
	MsgInvalidPage      = "Page must be an integer >= 1"
	MsgSkillRequired    = "Query parameter 'skill' is required"
	MsgQueryRequired    = "Query parameter 'q' is required"
	MsgSearchDisabled   = "Name search is not enabled"
)

// defaultPageConcurrency bounds the per-department window queries of one
// listing request.
const defaultPageConcurrency = 8

// EmployeeService is the query and update engine over employee records.
type EmployeeService interface {
	Create(ctx context.Context, req domain.CreateEmployeeRequest) error
	Get(ctx context.Context, employeeID string) (*domain.EmployeeView, error)
	Update(ctx context.Context, employeeID string, req domain.UpdateEmployeeRequest) error
	Delete(ctx context.Context, employeeID string) error
	SearchBySkill(ctx context.Context, skill string) ([]domain.EmployeeView, error)
	AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error)
	ListByDepartment(ctx context.Context, page int) (*domain.DepartmentPage, error)
	SearchByName(ctx context.Context, query string) ([]domain.EmployeeView, error)
	ClearAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// FailureCounter is incremented when a best-effort side effect fails.
type FailureCounter interface {
	Inc()
}

type employeeService struct {
	repo            domain.EmployeeRepository
	events          domain.EventPublisher
	index           domain.SearchIndex
	pageConcurrency int
	publishFailures FailureCounter
	indexFailures   FailureCounter
}

// Option configures the service.
type Option func(*employeeService)

// WithEventPublisher announces every successful write.
func WithEventPublisher(p domain.EventPublisher) Option {
	return func(s *employeeService) { s.events = p }
}

// WithSearchIndex mirrors writes into a full-text index and enables
// SearchByName.
func WithSearchIndex(idx domain.SearchIndex) Option {
	return func(s *employeeService) { s.index = idx }
}

// WithPageConcurrency sets how many department windows are fetched at once.
func WithPageConcurrency(n int) Option {
	return func(s *employeeService) {
		if n > 0 {
			s.pageConcurrency = n
		}
	}
}

// WithFailureCounters reports failed side effects.
func WithFailureCounters(publish, index FailureCounter) Option {
	return func(s *employeeService) {
		s.publishFailures = publish
		s.indexFailures = index
	}
}

// NewEmployeeService creates the engine over a record store.
func NewEmployeeService(repo domain.EmployeeRepository, opts ...Option) EmployeeService {
	s := &employeeService{
		repo:            repo,
		pageConcurrency: defaultPageConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *employeeService) Create(ctx context.Context, req domain.CreateEmployeeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	e := req.Employee()
	e.JoiningDate = domain.DateOf(e.JoiningDate).Time()

	exists, err := s.repo.Exists(ctx, e.EmployeeID)
	if err != nil {
		return fmt.Errorf("failed to check employee %s: %w", e.EmployeeID, err)
	}
	if exists {
		return domain.NewError(domain.ErrConflict, MsgEmployeeExists)
	}

	if err := s.repo.Insert(ctx, &e); err != nil {
		// A concurrent create can still win between the check and the insert.
		if errors.Is(err, domain.ErrConflict) {
			return domain.NewError(domain.ErrConflict, MsgEmployeeExists)
		}
		return fmt.Errorf("failed to create employee %s: %w", e.EmployeeID, err)
	}
	logger.InfoLog(ctx, "Employee %s created", e.EmployeeID)

	if s.events != nil {
		if err := s.events.PublishEmployeeCreated(ctx, &e); err != nil {
			s.publishFailed(ctx, err)
		}
	}
	s.reindex(ctx, e)
	return nil
}

func (s *employeeService) Get(ctx context.Context, employeeID string) (*domain.EmployeeView, error) {
	e, err := s.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, s.mapNotFound(err, "get", employeeID)
	}
	view := domain.NewEmployeeView(*e)
	return &view, nil
}

func (s *employeeService) Update(ctx context.Context, employeeID string, req domain.UpdateEmployeeRequest) error {
	set := req.UpdateSet()
	if set.IsEmpty() {
		return domain.NewError(domain.ErrBadRequest, MsgNoFieldsToUpdate)
	}
	if set.JoiningDate != nil {
		d := domain.DateOf(*set.JoiningDate).Time()
		set.JoiningDate = &d
	}

	if err := s.repo.Update(ctx, employeeID, set); err != nil {
		return s.mapNotFound(err, "update", employeeID)
	}
	logger.InfoLog(ctx, "Employee %s updated: %s", employeeID, strings.Join(set.Fields(), ", "))

	if s.events != nil {
		if err := s.events.PublishEmployeeUpdated(ctx, employeeID, set.Fields()); err != nil {
			s.publishFailed(ctx, err)
		}
	}
	if s.index != nil {
		e, err := s.repo.FindByEmployeeID(ctx, employeeID)
		if err != nil {
			s.indexFailed(ctx, err)
			return nil
		}
		s.reindex(ctx, *e)
	}
	return nil
}

func (s *employeeService) Delete(ctx context.Context, employeeID string) error {
	if err := s.repo.Delete(ctx, employeeID); err != nil {
		return s.mapNotFound(err, "delete", employeeID)
	}
	logger.InfoLog(ctx, "Employee %s deleted", employeeID)

	if s.events != nil {
		if err := s.events.PublishEmployeeDeleted(ctx, employeeID); err != nil {
			s.publishFailed(ctx, err)
		}
	}
	if s.index != nil {
		if err := s.index.DeleteEmployee(ctx, employeeID); err != nil {
			s.indexFailed(ctx, err)
		}
	}
	return nil
}

func (s *employeeService) SearchBySkill(ctx context.Context, skill string) ([]domain.EmployeeView, error) {
	if skill == "" {
		return nil, domain.NewError(domain.ErrBadRequest, MsgSkillRequired)
	}
	employees, err := s.repo.FindBySkill(ctx, skill)
	if err != nil {
		return nil, fmt.Errorf("failed to search skill %q: %w", skill, err)
	}
	return domain.NewEmployeeViews(employees), nil
}

func (s *employeeService) AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error) {
	result, err := s.repo.AverageSalaryByDepartment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average salaries: %w", err)
	}
	if result == nil {
		result = []domain.DepartmentSalary{}
	}
	return result, nil
}

// ListByDepartment returns one page window per department. Windows are
// fetched concurrently and reassembled in department order; departments
// with an empty window are left out.
func (s *employeeService) ListByDepartment(ctx context.Context, page int) (*domain.DepartmentPage, error) {
	if page < 1 {
		return nil, domain.NewError(domain.ErrBadRequest, MsgInvalidPage)
	}

	// No store can hold a window that far out, and skip would overflow.
	if page-1 > math.MaxInt/domain.PageSize {
		return &domain.DepartmentPage{
			Page:      page,
			PageSize:  domain.PageSize,
			Employees: domain.DepartmentGroups{},
		}, nil
	}

	departments, err := s.repo.DistinctDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	sort.Strings(departments)

	skip := (page - 1) * domain.PageSize
	windows := make([][]domain.Employee, len(departments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pageConcurrency)
	for i, dept := range departments {
		i, dept := i, dept
		g.Go(func() error {
			window, err := s.repo.FindByDepartment(gctx, dept, skip, domain.PageSize)
			if err != nil {
				return fmt.Errorf("failed to list department %q: %w", dept, err)
			}
			windows[i] = window
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := domain.DepartmentGroups{}
	for i, dept := range departments {
		if len(windows[i]) == 0 {
			continue
		}
		groups = append(groups, domain.DepartmentGroup{
			Department: dept,
			Employees:  domain.NewEmployeeViews(windows[i]),
		})
	}

	return &domain.DepartmentPage{
		Page:      page,
		PageSize:  domain.PageSize,
		Employees: groups,
	}, nil
}

func (s *employeeService) SearchByName(ctx context.Context, query string) ([]domain.EmployeeView, error) {
	if s.index == nil {
		return nil, domain.NewError(domain.ErrUnavailable, MsgSearchDisabled)
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewError(domain.ErrBadRequest, MsgQueryRequired)
	}
	employees, err := s.index.SearchByName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search name %q: %w", query, err)
	}
	return domain.NewEmployeeViews(employees), nil
}

// ClearAll removes every record. The search mirror is not cleared here; the
// seeder clears it directly.
func (s *employeeService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear employees: %w", err)
	}
	logger.InfoLog(ctx, "Cleared %d employees", n)
	return n, nil
}

func (s *employeeService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *employeeService) mapNotFound(err error, action, employeeID string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrNotFound, MsgEmployeeNotFound)
	}
	return fmt.Errorf("failed to %s employee %s: %w", action, employeeID, err)
}

func (s *employeeService) reindex(ctx context.Context, e domain.Employee) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexEmployee(ctx, e); err != nil {
		s.indexFailed(ctx, err)
	}
}

func (s *employeeService) publishFailed(ctx context.Context, err error) {
	logger.WarnLog(ctx, "Failed to publish employee event: %v", err)
	if s.publishFailures != nil {
		s.publishFailures.Inc()
	}
}

func (s *employeeService) indexFailed(ctx context.Context, err error) {
	logger.WarnLog(ctx, "Failed to update search index: %v", err)
	if s.indexFailures != nil {
		s.indexFailures.Inc()
	}
}
