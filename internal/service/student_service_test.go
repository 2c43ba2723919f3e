package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edubase/schoolhub/internal/model"
)

func newStudentFixture(t *testing.T) (StudentService, *fakeSchoolRepo, *fakeStudentRepo) {
	t.Helper()
	schools := &fakeSchoolRepo{}
	schools.schools = append(schools.schools, model.School{
		ID: uuid.New(), SchoolID: "GRN1234", Name: "Greenwood High",
		Email: "office@greenwood.example", IsVerified: true, IsActive: true,
	})
	students := &fakeStudentRepo{}
	return NewStudentService(schools, students), schools, students
}

func TestCreateStudent(t *testing.T) {
	svc, schools, students := newStudentFixture(t)
	ctx := context.Background()
	dob := time.Date(2015, time.September, 1, 0, 0, 0, 0, time.UTC)

	student, err := svc.CreateStudent(ctx, "GRN1234", StudentInput{
		FirstName: "Milo", LastName: "Park", Grade: "3", DateOfBirth: &dob,
	})
	require.NoError(t, err)

	assert.Equal(t, "Milo Park", student.FullName())
	assert.True(t, student.IsActive)
	assert.NotNil(t, students.stored(student.ID))

	_, err = svc.CreateStudent(ctx, "ZZZ9999", StudentInput{FirstName: "Nora", LastName: "Park"})
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "School not found", nferr.Message)

	schools.stored("GRN1234").IsVerified = false
	_, err = svc.CreateStudent(ctx, "GRN1234", StudentInput{FirstName: "Nora", LastName: "Park"})
	require.ErrorAs(t, err, &nferr)
}

func TestGetStudentScopedBySchool(t *testing.T) {
	svc, _, _ := newStudentFixture(t)
	ctx := context.Background()
	created, err := svc.CreateStudent(ctx, "GRN1234", StudentInput{FirstName: "Milo", LastName: "Park"})
	require.NoError(t, err)

	student, err := svc.GetStudent(ctx, "GRN1234", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, student.ID)

	_, err = svc.GetStudent(ctx, "OTH5555", created.ID)
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "Student not found", nferr.Message)

	_, err = svc.GetStudent(ctx, "GRN1234", uuid.New())
	require.ErrorAs(t, err, &nferr)
}

func TestSetStudentActive(t *testing.T) {
	svc, _, students := newStudentFixture(t)
	ctx := context.Background()
	created, err := svc.CreateStudent(ctx, "GRN1234", StudentInput{FirstName: "Milo", LastName: "Park"})
	require.NoError(t, err)

	student, err := svc.SetStudentActive(ctx, "GRN1234", created.ID, false)
	require.NoError(t, err)
	assert.False(t, student.IsActive)
	assert.False(t, students.stored(created.ID).IsActive)

	_, err = svc.SetStudentActive(ctx, "OTH5555", created.ID, true)
	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestListStudentsForParent(t *testing.T) {
	svc, _, students := newStudentFixture(t)
	ctx := context.Background()
	mine, err := svc.CreateStudent(ctx, "GRN1234", StudentInput{FirstName: "Milo", LastName: "Park"})
	require.NoError(t, err)
	_, err = svc.CreateStudent(ctx, "GRN1234", StudentInput{FirstName: "Nora", LastName: "Holt"})
	require.NoError(t, err)

	parentID := uuid.NewString()
	require.NoError(t, students.AddParent(ctx, mine.ID, parentID))

	linked, err := svc.ListStudentsForParent(ctx, "GRN1234", parentID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "Milo Park", linked[0].FullName())

	all, err := svc.ListStudents(ctx, "GRN1234")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
