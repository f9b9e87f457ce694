package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func employeeDoc(id primitive.ObjectID, empID, dept string, salary float64, joined time.Time, skills ...string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "employee_id", Value: empID},
		{Key: "name", Value: "Name " + empID},
		{Key: "department", Value: dept},
		{Key: "salary", Value: salary},
		{Key: "joining_date", Value: joined},
		{Key: "skills", Value: bson.A(toAny(skills))},
	}
}

func toAny(skills []string) []interface{} {
	out := make([]interface{}, 0, len(skills))
	for _, s := range skills {
		out = append(out, s)
	}
	return out
}

func TestMongoEmployeeRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	joined := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("insert assigns object id", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		e := &domain.Employee{EmployeeID: "E1", Name: "Ann", Department: "Eng", Salary: 100, JoiningDate: joined}
		require.NoError(mt, repo.Insert(ctx, e))
		assert.Len(mt, e.ID, 24)
	})

	mt.Run("insert duplicate maps to conflict", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Insert(ctx, &domain.Employee{EmployeeID: "E1", JoiningDate: joined})
		assert.True(mt, errors.Is(err, domain.ErrConflict))
	})

	mt.Run("find by employee id decodes document", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch,
			employeeDoc(oid, "E1", "Eng", 100, joined, "go", "sql")))

		e, err := repo.FindByEmployeeID(ctx, "E1")
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), e.ID)
		assert.Equal(mt, "Eng", e.Department)
		assert.Equal(mt, []string{"go", "sql"}, e.Skills)
		assert.True(mt, joined.Equal(e.JoiningDate))
	})

	mt.Run("find by employee id not found", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch))

		_, err := repo.FindByEmployeeID(ctx, "missing")
		assert.True(mt, errors.Is(err, domain.ErrNotFound))
	})

	mt.Run("exists", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch, bson.D{{Key: "_id", Value: primitive.NewObjectID()}}),
			mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch),
		)

		ok, err := repo.Exists(ctx, "E1")
		require.NoError(mt, err)
		assert.True(mt, ok)

		ok, err = repo.Exists(ctx, "E2")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("update unmatched is not found", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		name := "Bob"
		err := repo.Update(ctx, "missing", domain.UpdateSet{Name: &name})
		assert.True(mt, errors.Is(err, domain.ErrNotFound))
	})

	mt.Run("update matched", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		salary := 250.0
		require.NoError(mt, repo.Update(ctx, "E1", domain.UpdateSet{Salary: &salary}))
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(mt, repo.Delete(ctx, "E1"))
		assert.True(mt, errors.Is(repo.Delete(ctx, "E1"), domain.ErrNotFound))
	})

	mt.Run("find by skill", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch,
			employeeDoc(primitive.NewObjectID(), "E1", "Eng", 100, joined, "go"),
			employeeDoc(primitive.NewObjectID(), "E2", "Ops", 90, joined, "go", "k8s"),
		))

		got, err := repo.FindBySkill(ctx, "go")
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "E1", got[0].EmployeeID)
		assert.Equal(mt, "E2", got[1].EmployeeID)
	})

	mt.Run("average salary by department", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch,
			bson.D{{Key: "department", Value: "Eng"}, {Key: "avg_salary", Value: 150.0}},
			bson.D{{Key: "department", Value: "HR"}, {Key: "avg_salary", Value: 80.0}},
		))

		got, err := repo.AverageSalaryByDepartment(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, []domain.DepartmentSalary{
			{Department: "Eng", AvgSalary: 150},
			{Department: "HR", AvgSalary: 80},
		}, got)
	})

	mt.Run("distinct departments", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "values", Value: bson.A{"Eng", "HR"}},
		))

		got, err := repo.DistinctDepartments(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, []string{"Eng", "HR"}, got)
	})

	mt.Run("find by department returns a window", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.employees", mtest.FirstBatch,
			employeeDoc(primitive.NewObjectID(), "E11", "Eng", 100, joined),
		))

		got, err := repo.FindByDepartment(ctx, "Eng", 10, 10)
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "E11", got[0].EmployeeID)
		assert.NotNil(mt, got[0].Skills)
	})

	mt.Run("delete all", func(mt *mtest.T) {
		repo := NewMongoEmployeeRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 7}))

		n, err := repo.DeleteAll(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), n)
	})
}

func TestUpdateDocument_OnlySetFields(t *testing.T) {
	name := "Ann"
	skills := []string{}
	doc := updateDocument(domain.UpdateSet{Name: &name, Skills: &skills})

	require.Len(t, doc, 2)
	assert.Equal(t, "name", doc[0].Key)
	assert.Equal(t, "skills", doc[1].Key)
	assert.Equal(t, []string{}, doc[1].Value)
}
