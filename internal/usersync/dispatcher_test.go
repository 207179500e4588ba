package usersync

import (
	"context"
	"testing"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSyncFixture(t *testing.T) (*gorm.DB, *Dispatcher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Employee{},
		&model.AuditLog{},
	))

	dispatcher := NewDispatcher(
		repository.NewEmployeeRepository(db),
		repository.NewUserRepository(db),
		repository.NewAuditRepository(db),
	)
	return db, dispatcher
}

func TestCleanCedula(t *testing.T) {
	assert.Equal(t, "00112345678", CleanCedula("001-1234567-8"))
	assert.Equal(t, "00112345678", CleanCedula(" 001 1234567 8 "))
	assert.Equal(t, "", CleanCedula("n/a"))
}

func TestSyncProvisionsNewUser(t *testing.T) {
	db, dispatcher := newSyncFixture(t)

	employee := model.Employee{Name: "María Pérez", Cedula: "001-1234567-8", Active: true}
	require.NoError(t, db.Create(&employee).Error)

	require.NoError(t, dispatcher.SyncEmployee(context.Background(), employee.ID))

	var user model.User
	require.NoError(t, db.First(&user, "cedula = ?", "00112345678").Error)
	assert.Equal(t, "00112345678", user.Username)
	assert.Equal(t, "María Pérez", user.Name)
	assert.Equal(t, model.RoleEmployee, user.Role)
	assert.Equal(t, "00112345678@tiendita.local", user.Email)
	// Default password is the cleaned cedula.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("00112345678")))

	var reloaded model.Employee
	require.NoError(t, db.First(&reloaded, "id = ?", employee.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, user.ID, *reloaded.UserID)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", model.ActionSyncEmployeeUser).Error)
	assert.Equal(t, employee.ID.String(), entry.EntityID)
}

func TestSyncAdoptsExistingUserByCedula(t *testing.T) {
	db, dispatcher := newSyncFixture(t)

	existing := model.User{
		Username: "00112345678",
		Email:    "maria@tiendita.local",
		Name:     "María",
		Cedula:   "00112345678",
		Password: "x",
		Role:     model.RoleEmployee,
	}
	require.NoError(t, db.Create(&existing).Error)

	employee := model.Employee{Name: "María Pérez", Cedula: "001-1234567-8", Active: true}
	require.NoError(t, db.Create(&employee).Error)

	require.NoError(t, dispatcher.SyncEmployee(context.Background(), employee.ID))

	var reloaded model.Employee
	require.NoError(t, db.First(&reloaded, "id = ?", employee.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, existing.ID, *reloaded.UserID)

	// No second account was created.
	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncUpdatesLinkedUser(t *testing.T) {
	db, dispatcher := newSyncFixture(t)

	user := model.User{
		Username: "old-username",
		Email:    "old@tiendita.local",
		Name:     "Nombre Viejo",
		Cedula:   "00112345678",
		Password: "x",
		Role:     model.RoleEmployee,
	}
	require.NoError(t, db.Create(&user).Error)

	employee := model.Employee{
		Name:   "Nombre Nuevo",
		Cedula: "001-1234567-8",
		Email:  "nuevo@tiendita.local",
		Active: true,
		UserID: &user.ID,
	}
	require.NoError(t, db.Create(&employee).Error)

	require.NoError(t, dispatcher.SyncEmployee(context.Background(), employee.ID))

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, "Nombre Nuevo", reloaded.Name)
	assert.Equal(t, "00112345678", reloaded.Username)
	assert.Equal(t, "nuevo@tiendita.local", reloaded.Email)
}

func TestSyncFailureIsAuditedAndReturned(t *testing.T) {
	db, dispatcher := newSyncFixture(t)

	missing := uuid.New()
	err := dispatcher.SyncEmployee(context.Background(), missing)
	require.Error(t, err)

	var entry model.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", model.ActionSyncEmployeeUserFailed).Error)
	assert.Equal(t, missing.String(), entry.EntityID)
}
