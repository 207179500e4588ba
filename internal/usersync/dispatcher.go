// Package usersync keeps login accounts in step with employee records.
//
// Employee writes commit on their own; the sync runs afterwards as a
// best-effort worker. A failed sync never rolls back the employee record;
// it is logged and recorded in the audit trail instead.
package usersync

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Event asks the worker to reconcile one employee's login account.
type Event struct {
	EmployeeID uuid.UUID
}

// Dispatcher receives post-commit sync events and applies them on a worker
// goroutine, decoupled from the employee-write transaction.
type Dispatcher struct {
	events       chan Event
	employeeRepo repository.EmployeeRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
}

func NewDispatcher(
	employeeRepo repository.EmployeeRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
) *Dispatcher {
	return &Dispatcher{
		events:       make(chan Event, 64),
		employeeRepo: employeeRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
	}
}

// Run drains the event queue until Close is called.
func (d *Dispatcher) Run() {
	for event := range d.events {
		if err := d.SyncEmployee(context.Background(), event.EmployeeID); err != nil {
			log.Printf("employee-user sync failed for %s: %v", event.EmployeeID, err)
		}
	}
}

// Dispatch enqueues a sync event without blocking the caller. A full queue is
// logged and dropped; the next employee write will reconcile the account.
func (d *Dispatcher) Dispatch(employeeID uuid.UUID) {
	select {
	case d.events <- Event{EmployeeID: employeeID}:
	default:
		log.Printf("employee-user sync queue full, dropping event for %s", employeeID)
	}
}

func (d *Dispatcher) Close() {
	close(d.events)
}

// CleanCedula strips everything except digits from a national ID.
func CleanCedula(cedula string) string {
	var b strings.Builder
	for _, r := range cedula {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SyncEmployee creates or updates the login account linked to the employee.
// Exposed for direct invocation in tests.
func (d *Dispatcher) SyncEmployee(ctx context.Context, employeeID uuid.UUID) error {
	employee, err := d.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return d.recordFailure(ctx, employeeID, err)
	}

	cedula := CleanCedula(employee.Cedula)

	if employee.UserID != nil {
		user, findErr := d.userRepo.GetByID(ctx, employee.UserID.String())
		if findErr != nil {
			return d.recordFailure(ctx, employeeID, findErr)
		}
		user.Name = employee.Name
		user.Cedula = cedula
		user.Username = cedula
		if employee.Email != "" {
			user.Email = employee.Email
		}
		if updateErr := d.userRepo.Update(ctx, user); updateErr != nil {
			return d.recordFailure(ctx, employeeID, updateErr)
		}
		return d.recordSuccess(ctx, employee, user)
	}

	// No linked account yet, so adopt an existing one with the same cedula or
	// provision a fresh login.
	user, findErr := d.userRepo.GetByCedula(ctx, cedula)
	if findErr != nil {
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return d.recordFailure(ctx, employeeID, findErr)
		}
		user, findErr = d.provisionUser(ctx, employee, cedula)
		if findErr != nil {
			return d.recordFailure(ctx, employeeID, findErr)
		}
	}

	employee.UserID = &user.ID
	if updateErr := d.employeeRepo.Update(ctx, employee); updateErr != nil {
		return d.recordFailure(ctx, employeeID, updateErr)
	}

	return d.recordSuccess(ctx, employee, user)
}

func (d *Dispatcher) provisionUser(ctx context.Context, employee *model.Employee, cedula string) (*model.User, error) {
	// Default password is the cedula; users change it on first login.
	hashed, err := bcrypt.GenerateFromPassword([]byte(cedula), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	email := employee.Email
	if email == "" {
		email = cedula + "@tiendita.local"
	}

	user := &model.User{
		Username: cedula,
		Email:    email,
		Name:     employee.Name,
		Cedula:   cedula,
		Password: string(hashed),
		Role:     model.RoleEmployee,
	}
	if err := d.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *Dispatcher) recordSuccess(ctx context.Context, employee *model.Employee, user *model.User) error {
	details, _ := json.Marshal(map[string]interface{}{
		"employee_id": employee.ID.String(),
		"user_id":     user.ID.String(),
		"username":    user.Username,
	})
	entry := &model.AuditLog{
		Action:     model.ActionSyncEmployeeUser,
		EntityID:   employee.ID.String(),
		EntityName: employee.Name,
		Details:    string(details),
	}
	if err := d.auditRepo.Log(ctx, entry); err != nil {
		log.Printf("failed to audit employee-user sync for %s: %v", employee.ID, err)
	}
	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, employeeID uuid.UUID, cause error) error {
	details, _ := json.Marshal(map[string]interface{}{
		"employee_id": employeeID.String(),
		"error":       cause.Error(),
	})
	entry := &model.AuditLog{
		Action:   model.ActionSyncEmployeeUserFailed,
		EntityID: employeeID.String(),
		Details:  string(details),
	}
	if err := d.auditRepo.Log(ctx, entry); err != nil {
		log.Printf("failed to audit employee-user sync failure for %s: %v", employeeID, err)
	}
	return cause
}
