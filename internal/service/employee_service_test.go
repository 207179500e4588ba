package service

import (
	"context"
	"testing"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/internal/usersync"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newEmployeeService(t *testing.T) (*gorm.DB, EmployeeService, *usersync.Dispatcher) {
	t.Helper()
	db := newTestDB(t)

	employeeRepo := repository.NewEmployeeRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	dispatcher := usersync.NewDispatcher(employeeRepo, userRepo, auditRepo)

	svc := NewEmployeeService(
		employeeRepo,
		repository.NewCategoryRepository(db),
		auditRepo,
		repository.NewTransactionManager(db),
		dispatcher,
	)
	return db, svc, dispatcher
}

func TestCreateEmployeeCleansCedula(t *testing.T) {
	db, svc, _ := newEmployeeService(t)
	ctx := context.Background()

	employee, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{
		Name:   "María Pérez",
		Cedula: "001-1234567-8",
	})
	require.NoError(t, err)
	assert.Equal(t, "00112345678", employee.Cedula)
	assert.True(t, employee.Active)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", model.ActionCreateEmployee).Error)
	assert.Equal(t, employee.ID, entry.EntityID)
}

func TestCreateEmployeeRejectsDuplicateCedula(t *testing.T) {
	_, svc, _ := newEmployeeService(t)
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{Name: "A", Cedula: "00112345678"})
	require.NoError(t, err)

	// Same cedula with different formatting is still a duplicate.
	_, err = svc.CreateEmployee(ctx, "", CreateEmployeeRequest{Name: "B", Cedula: "001-1234567-8"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestCreateEmployeeRejectsDigitlessCedula(t *testing.T) {
	_, svc, _ := newEmployeeService(t)

	_, err := svc.CreateEmployee(context.Background(), "", CreateEmployeeRequest{Name: "A", Cedula: "---"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateEmployeeSyncProvisionsAccount(t *testing.T) {
	db, svc, dispatcher := newEmployeeService(t)
	ctx := context.Background()

	employee, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{
		Name:   "María Pérez",
		Cedula: "001-1234567-8",
	})
	require.NoError(t, err)

	// Drain the queued event synchronously instead of racing a worker.
	employeeID, err := uuid.Parse(employee.ID)
	require.NoError(t, err)
	require.NoError(t, dispatcher.SyncEmployee(ctx, employeeID))

	var user model.User
	require.NoError(t, db.First(&user, "cedula = ?", "00112345678").Error)
	assert.Equal(t, model.RoleEmployee, user.Role)

	linked, err := svc.GetEmployeeByUserID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, employee.ID, linked.ID)
}

func TestUpdateEmployeeCategoryAssignment(t *testing.T) {
	db, svc, _ := newEmployeeService(t)
	ctx := context.Background()

	category := model.Category{
		Name:          "Gerencial",
		PurchaseLimit: decimal.NewNullDecimal(decimal.NewFromInt(2000)),
		Active:        true,
	}
	require.NoError(t, db.Create(&category).Error)

	employee, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{Name: "A", Cedula: "00112345678"})
	require.NoError(t, err)

	updated, err := svc.UpdateEmployee(ctx, "", employee.ID, UpdateEmployeeRequest{
		CategoryID: category.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, category.ID.String(), *updated.CategoryID)

	// Unknown category is refused.
	_, err = svc.UpdateEmployee(ctx, "", employee.ID, UpdateEmployeeRequest{
		CategoryID: "4dfd1c50-0000-0000-0000-000000000000",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeactivateEmployee(t *testing.T) {
	_, svc, _ := newEmployeeService(t)
	ctx := context.Background()

	employee, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{Name: "A", Cedula: "00112345678"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.UpdateEmployee(ctx, "", employee.ID, UpdateEmployeeRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestDeleteEmployee(t *testing.T) {
	db, svc, _ := newEmployeeService(t)
	ctx := context.Background()

	employee, err := svc.CreateEmployee(ctx, "", CreateEmployeeRequest{Name: "A", Cedula: "00112345678"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEmployee(ctx, "", employee.ID))

	_, err = svc.GetEmployee(ctx, employee.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", model.ActionDeleteEmployee).Error)
	assert.Equal(t, employee.ID, entry.EntityID)
}
