package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// employeeDocument is the record shape at rest in the employees collection.
type employeeDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeID  string             `bson:"employee_id"`
	Name        string             `bson:"name"`
	Department  string             `bson:"department"`
	Salary      float64            `bson:"salary"`
	JoiningDate time.Time          `bson:"joining_date"`
	Skills      []string           `bson:"skills"`
}

func (d employeeDocument) toDomain() domain.Employee {
	skills := d.Skills
	if skills == nil {
		skills = []string{}
	}
	return domain.Employee{
		ID:          d.ID.Hex(),
		EmployeeID:  d.EmployeeID,
		Name:        d.Name,
		Department:  d.Department,
		Salary:      d.Salary,
		JoiningDate: d.JoiningDate.UTC(),
		Skills:      skills,
	}
}

func newEmployeeDocument(e domain.Employee) employeeDocument {
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	return employeeDocument{
		EmployeeID:  e.EmployeeID,
		Name:        e.Name,
		Department:  e.Department,
		Salary:      e.Salary,
		JoiningDate: domain.DateOf(e.JoiningDate).Time(),
		Skills:      skills,
	}
}

// EmployeeIndexes are created once at startup. The unique index is what
// guarantees employee_id uniqueness against racing inserts.
var EmployeeIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "employee_id", Value: 1}},
		Options: options.Index().SetName("uniq_employee_id").SetUnique(true),
	},
}

type mongoEmployeeRepository struct {
	coll *mongo.Collection
}

// NewMongoEmployeeRepository creates a repository over the given collection.
func NewMongoEmployeeRepository(coll *mongo.Collection) *mongoEmployeeRepository {
	return &mongoEmployeeRepository{coll: coll}
}

// EnsureIndexes creates EmployeeIndexes. Creating an existing identical
// index is a no-op on the server, so this is safe on every start.
func (r *mongoEmployeeRepository) EnsureIndexes(ctx context.Context) error {
	names, err := r.coll.Indexes().CreateMany(ctx, EmployeeIndexes)
	if err != nil {
		return fmt.Errorf("failed to create employee indexes: %w", err)
	}
	logger.InfoLog(ctx, "Employee indexes ready: %v", names)
	return nil
}

func (r *mongoEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	doc := newEmployeeDocument(*e)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: employee_id %q already exists", domain.ErrConflict, e.EmployeeID)
		}
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func (r *mongoEmployeeRepository) Exists(ctx context.Context, employeeID string) (bool, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})
	err := r.coll.FindOne(ctx, bson.D{{Key: "employee_id", Value: employeeID}}, opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check employee: %w", err)
	}
	return true, nil
}

func (r *mongoEmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	var doc employeeDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "employee_id", Value: employeeID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	e := doc.toDomain()
	return &e, nil
}

func (r *mongoEmployeeRepository) Update(ctx context.Context, employeeID string, set domain.UpdateSet) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "employee_id", Value: employeeID}},
		bson.D{{Key: "$set", Value: updateDocument(set)}},
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	return nil
}

// updateDocument renders only the fields present in the set.
func updateDocument(set domain.UpdateSet) bson.D {
	var doc bson.D
	if set.Name != nil {
		doc = append(doc, bson.E{Key: "name", Value: *set.Name})
	}
	if set.Department != nil {
		doc = append(doc, bson.E{Key: "department", Value: *set.Department})
	}
	if set.Salary != nil {
		doc = append(doc, bson.E{Key: "salary", Value: *set.Salary})
	}
	if set.JoiningDate != nil {
		doc = append(doc, bson.E{Key: "joining_date", Value: domain.DateOf(*set.JoiningDate).Time()})
	}
	if set.Skills != nil {
		skills := *set.Skills
		if skills == nil {
			skills = []string{}
		}
		doc = append(doc, bson.E{Key: "skills", Value: skills})
	}
	return doc
}

func (r *mongoEmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "employee_id", Value: employeeID}})
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	return nil
}

// FindBySkill relies on array equality semantics: {skills: s} matches any
// document whose skills array holds an element equal to s.
func (r *mongoEmployeeRepository) FindBySkill(ctx context.Context, skill string) ([]domain.Employee, error) {
	return r.find(ctx, bson.D{{Key: "skills", Value: skill}}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *mongoEmployeeRepository) AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$department"},
			{Key: "avg_salary", Value: bson.D{{Key: "$avg", Value: "$salary"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "department", Value: "$_id"},
			{Key: "avg_salary", Value: 1},
			{Key: "_id", Value: 0},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "department", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate salaries: %w", err)
	}
	defer cursor.Close(ctx)

	result := []domain.DepartmentSalary{}
	for cursor.Next(ctx) {
		var row struct {
			Department string  `bson:"department"`
			AvgSalary  float64 `bson:"avg_salary"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode salary group: %w", err)
		}
		logger.DebugLog(ctx, "Salary group: department=%s avg_salary=%.2f", row.Department, row.AvgSalary)
		result = append(result, domain.DepartmentSalary{Department: row.Department, AvgSalary: row.AvgSalary})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("salary cursor error: %w", err)
	}
	return result, nil
}

func (r *mongoEmployeeRepository) DistinctDepartments(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "department", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	departments := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			departments = append(departments, s)
		}
	}
	return departments, nil
}

func (r *mongoEmployeeRepository) FindByDepartment(ctx context.Context, department string, skip, limit int) ([]domain.Employee, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "joining_date", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.D{{Key: "department", Value: department}}, opts)
}

func (r *mongoEmployeeRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear employees: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *mongoEmployeeRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *mongoEmployeeRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]domain.Employee, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find employees: %w", err)
	}
	var docs []employeeDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}

	employees := make([]domain.Employee, 0, len(docs))
	for _, doc := range docs {
		employees = append(employees, doc.toDomain())
	}
	return employees, nil
}
