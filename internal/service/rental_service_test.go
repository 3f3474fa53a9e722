package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	"github.com/campusclub/gear-rental-api/internal/repository"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
)

type mockRentalRepo struct {
	rentals      []models.RentalDetail
	rental       *models.Rental
	overdue      []models.RentalDetail
	createErr    error
	returnErr    error
	created      *repository.DirectRentalParams
	returned     *repository.ReturnParams
	returnResult *models.Rental
}

func (m *mockRentalRepo) List(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, int, error) {
	return m.rentals, len(m.rentals), nil
}

func (m *mockRentalRepo) ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error) {
	return m.rentals, nil
}

func (m *mockRentalRepo) FindByID(ctx context.Context, id string) (*models.Rental, error) {
	if m.rental == nil {
		return nil, sql.ErrNoRows
	}
	return m.rental, nil
}

func (m *mockRentalRepo) ListOverdue(ctx context.Context, now time.Time) ([]models.RentalDetail, error) {
	return m.overdue, nil
}

func (m *mockRentalRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	return len(m.overdue), nil
}

func (m *mockRentalRepo) CreateDirect(ctx context.Context, params repository.DirectRentalParams) (*models.Rental, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &params
	return &models.Rental{ID: "rental-1", StudentID: params.StudentID, DueDate: params.DueDate, Quantity: params.Quantity}, nil
}

func (m *mockRentalRepo) Return(ctx context.Context, params repository.ReturnParams) (*models.Rental, error) {
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	m.returned = &params
	if m.returnResult != nil {
		return m.returnResult, nil
	}
	closed := *m.rental
	closed.IsReturned = true
	closed.LateFee = &params.LateFee
	closed.ReturnDate = &params.Now
	return &closed, nil
}

type mockUserReader struct {
	user *models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func newRentalService(repo *mockRentalRepo, users *mockUserReader, equipment *mockEquipmentReader, semesters *mockSemesterReader) *RentalService {
	return NewRentalService(repo, users, equipment, semesters, validator.New(), zap.NewNop(), 10)
}

func TestRentalServiceCreateDefaultsDueDateToSemesterEnd(t *testing.T) {
	repo := &mockRentalRepo{}
	users := &mockUserReader{user: &models.User{ID: "stu-1", Name: "Student", Role: models.RoleStudent, IsApproved: true}}
	equipment := &mockEquipmentReader{item: &models.Equipment{ID: "eq-1", Name: "Camera", AvailableQuantity: 3, IsActive: true}}
	semesters := &mockSemesterReader{active: activeSemester()}
	svc := newRentalService(repo, users, equipment, semesters)

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	rental, err := svc.Create(context.Background(), actor, CreateRentalRequest{StudentID: "stu-1", EquipmentID: "eq-1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, semesters.active.EndDate, rental.DueDate)
	require.NotNil(t, repo.created)
	assert.Equal(t, "mem-1", repo.created.RentedBy)
}

func TestRentalServiceCreateRejectsUnapprovedStudent(t *testing.T) {
	repo := &mockRentalRepo{}
	users := &mockUserReader{user: &models.User{ID: "stu-1", Role: models.RoleStudent, IsApproved: false}}
	svc := newRentalService(repo, users, &mockEquipmentReader{}, &mockSemesterReader{})

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	_, err := svc.Create(context.Background(), actor, CreateRentalRequest{StudentID: "stu-1", EquipmentID: "eq-1", Quantity: 1})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRentalServiceCreateInsufficientStock(t *testing.T) {
	repo := &mockRentalRepo{createErr: repository.ErrInsufficientStock}
	users := &mockUserReader{user: &models.User{ID: "stu-1", Role: models.RoleStudent, IsApproved: true}}
	equipment := &mockEquipmentReader{item: &models.Equipment{ID: "eq-1", AvailableQuantity: 0, IsActive: true}}
	svc := newRentalService(repo, users, equipment, &mockSemesterReader{active: activeSemester()})

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	_, err := svc.Create(context.Background(), actor, CreateRentalRequest{StudentID: "stu-1", EquipmentID: "eq-1", Quantity: 1})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInsufficientStock.Code, appErr.Code)
}

func TestRentalServiceReturnComputesLateFee(t *testing.T) {
	due := time.Now().UTC().AddDate(0, 0, -3)
	repo := &mockRentalRepo{rental: &models.Rental{ID: "rental-1", DueDate: due, IsReturned: false}}
	svc := newRentalService(repo, &mockUserReader{}, &mockEquipmentReader{}, &mockSemesterReader{})

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	closed, err := svc.Return(context.Background(), actor, "rental-1", ReturnRentalRequest{})
	require.NoError(t, err)
	assert.True(t, closed.IsReturned)
	require.NotNil(t, repo.returned)
	// Three full days plus any elapsed fraction rounds up to four.
	assert.Equal(t, int64(40), repo.returned.LateFee)
}

func TestRentalServiceReturnOnTimeHasNoFee(t *testing.T) {
	due := time.Now().UTC().AddDate(0, 0, 2)
	repo := &mockRentalRepo{rental: &models.Rental{ID: "rental-1", DueDate: due}}
	svc := newRentalService(repo, &mockUserReader{}, &mockEquipmentReader{}, &mockSemesterReader{})

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	_, err := svc.Return(context.Background(), actor, "rental-1", ReturnRentalRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), repo.returned.LateFee)
}

func TestRentalServiceReturnFeeOverrideWins(t *testing.T) {
	due := time.Now().UTC().AddDate(0, 0, -10)
	repo := &mockRentalRepo{rental: &models.Rental{ID: "rental-1", DueDate: due}}
	svc := newRentalService(repo, &mockUserReader{}, &mockEquipmentReader{}, &mockSemesterReader{})

	override := int64(5)
	actor := &models.User{ID: "adm-1", Role: models.RoleAdmin}
	_, err := svc.Return(context.Background(), actor, "rental-1", ReturnRentalRequest{LateFeeOverride: &override})
	require.NoError(t, err)
	assert.Equal(t, int64(5), repo.returned.LateFee)
}

func TestRentalServiceReturnAlreadyReturned(t *testing.T) {
	repo := &mockRentalRepo{rental: &models.Rental{ID: "rental-1", IsReturned: true}}
	svc := newRentalService(repo, &mockUserReader{}, &mockEquipmentReader{}, &mockSemesterReader{})

	actor := &models.User{ID: "mem-1", Role: models.RoleMember}
	_, err := svc.Return(context.Background(), actor, "rental-1", ReturnRentalRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyReturned.Code, appErr.Code)
}

func TestRentalServiceListOverdueSortsByMostOverdue(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockRentalRepo{overdue: []models.RentalDetail{
		{Rental: models.Rental{ID: "r1", DueDate: now.AddDate(0, 0, -1)}},
		{Rental: models.Rental{ID: "r2", DueDate: now.AddDate(0, 0, -7)}},
		{Rental: models.Rental{ID: "r3", DueDate: now.AddDate(0, 0, -3)}},
	}}
	svc := newRentalService(repo, &mockUserReader{}, &mockEquipmentReader{}, &mockSemesterReader{})

	rentals, err := svc.ListOverdue(context.Background())
	require.NoError(t, err)
	require.Len(t, rentals, 3)
	assert.Equal(t, "r2", rentals[0].ID)
	assert.Equal(t, "r3", rentals[1].ID)
	assert.Equal(t, "r1", rentals[2].ID)
	assert.True(t, rentals[0].IsOverdue)
	assert.Positive(t, rentals[0].CalculatedLateFee)
}
