package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/internal/usersync"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateEmployeeRequest struct {
	Name       string `json:"name" binding:"required"`
	Cedula     string `json:"cedula" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	Department string `json:"department"`
	CategoryID string `json:"category_id"`
}

type UpdateEmployeeRequest struct {
	Name       string `json:"name"`
	Cedula     string `json:"cedula"`
	Email      string `json:"email" binding:"omitempty,email"`
	Department string `json:"department"`
	CategoryID string `json:"category_id"`
	Active     *bool  `json:"active"`
}

type EmployeeResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Cedula       string  `json:"cedula"`
	Email        string  `json:"email"`
	Department   string  `json:"department"`
	Active       bool    `json:"active"`
	CategoryID   *string `json:"category_id"`
	CategoryName string  `json:"category_name,omitempty"`
	UserID       *string `json:"user_id"`
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type EmployeeService interface {
	CreateEmployee(ctx context.Context, actorID string, req CreateEmployeeRequest) (EmployeeResponse, error)
	GetEmployee(ctx context.Context, id string) (EmployeeResponse, error)
	GetEmployeeByUserID(ctx context.Context, userID string) (EmployeeResponse, error)
	ListEmployees(ctx context.Context, page, limit int) ([]EmployeeResponse, int64, error)
	UpdateEmployee(ctx context.Context, actorID string, id string, req UpdateEmployeeRequest) (EmployeeResponse, error)
	DeleteEmployee(ctx context.Context, actorID string, id string) error
}

type employeeService struct {
	employeeRepo repository.EmployeeRepository
	categoryRepo repository.CategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	dispatcher   *usersync.Dispatcher // nil disables account sync
}

func NewEmployeeService(
	employeeRepo repository.EmployeeRepository,
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	dispatcher *usersync.Dispatcher,
) EmployeeService {
	return &employeeService{
		employeeRepo: employeeRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		dispatcher:   dispatcher,
	}
}

// --- Implementation ---

func (s *employeeService) CreateEmployee(ctx context.Context, actorID string, req CreateEmployeeRequest) (EmployeeResponse, error) {
	cedula := usersync.CleanCedula(req.Cedula)
	if cedula == "" {
		return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "cedula must contain digits")
	}

	if _, err := s.employeeRepo.FindByCedula(ctx, cedula); err == nil {
		return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrDuplicate, "an employee with this cedula already exists")
	}

	categoryID, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return EmployeeResponse{}, err
	}

	employee := model.Employee{
		Name:       req.Name,
		Cedula:     cedula,
		Email:      req.Email,
		Department: req.Department,
		Active:     true,
		CategoryID: categoryID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.employeeRepo.Create(txCtx, &employee); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperrors.Wrap(apperrors.ErrDuplicate, "an employee with this cedula already exists")
			}
			return fmt.Errorf("failed to create employee: %w", createErr)
		}

		details, _ := json.Marshal(req)
		entry := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionCreateEmployee,
			EntityID:   employee.ID.String(),
			EntityName: employee.Name,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return EmployeeResponse{}, err
	}

	// The login account is provisioned after commit, best-effort. A sync
	// failure never invalidates the employee record.
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(employee.ID)
	}

	return s.GetEmployee(ctx, employee.ID.String())
}

func (s *employeeService) GetEmployee(ctx context.Context, id string) (EmployeeResponse, error) {
	employeeID, err := uuid.Parse(id)
	if err != nil {
		return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid employee id")
	}

	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return EmployeeResponse{}, fmt.Errorf("failed to load employee: %w", err)
	}
	return toEmployeeResponse(employee), nil
}

func (s *employeeService) GetEmployeeByUserID(ctx context.Context, userID string) (EmployeeResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid user id")
	}

	employee, err := s.employeeRepo.FindByUserID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "no employee linked to this account")
		}
		return EmployeeResponse{}, fmt.Errorf("failed to load employee: %w", err)
	}
	return toEmployeeResponse(employee), nil
}

func (s *employeeService) ListEmployees(ctx context.Context, page, limit int) ([]EmployeeResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	employees, total, err := s.employeeRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}

	result := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		result = append(result, toEmployeeResponse(&employees[i]))
	}
	return result, total, nil
}

func (s *employeeService) UpdateEmployee(ctx context.Context, actorID string, id string, req UpdateEmployeeRequest) (EmployeeResponse, error) {
	employeeID, err := uuid.Parse(id)
	if err != nil {
		return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid employee id")
	}

	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return EmployeeResponse{}, fmt.Errorf("failed to load employee: %w", err)
	}

	identityChanged := false
	if req.Name != "" && req.Name != employee.Name {
		employee.Name = req.Name
		identityChanged = true
	}
	if req.Cedula != "" {
		cedula := usersync.CleanCedula(req.Cedula)
		if cedula == "" {
			return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "cedula must contain digits")
		}
		if cedula != employee.Cedula {
			if _, dupErr := s.employeeRepo.FindByCedula(ctx, cedula); dupErr == nil {
				return EmployeeResponse{}, apperrors.Wrap(apperrors.ErrDuplicate, "an employee with this cedula already exists")
			}
			employee.Cedula = cedula
			identityChanged = true
		}
	}
	if req.Email != "" {
		employee.Email = req.Email
	}
	if req.Department != "" {
		employee.Department = req.Department
	}
	if req.CategoryID != "" {
		categoryID, catErr := s.resolveCategory(ctx, req.CategoryID)
		if catErr != nil {
			return EmployeeResponse{}, catErr
		}
		employee.CategoryID = categoryID
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.employeeRepo.Update(txCtx, employee); updateErr != nil {
			return fmt.Errorf("failed to update employee: %w", updateErr)
		}

		details, _ := json.Marshal(req)
		entry := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionUpdateEmployee,
			EntityID:   employee.ID.String(),
			EntityName: employee.Name,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return EmployeeResponse{}, err
	}

	if s.dispatcher != nil && (identityChanged || employee.UserID == nil) {
		s.dispatcher.Dispatch(employee.ID)
	}

	return toEmployeeResponse(employee), nil
}

func (s *employeeService) DeleteEmployee(ctx context.Context, actorID string, id string) error {
	employeeID, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid employee id")
	}

	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return fmt.Errorf("failed to load employee: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.employeeRepo.Delete(txCtx, employeeID); deleteErr != nil {
			return fmt.Errorf("failed to delete employee: %w", deleteErr)
		}

		entry := &model.AuditLog{
			UserID:     parseActor(actorID),
			Action:     model.ActionDeleteEmployee,
			EntityID:   employee.ID.String(),
			EntityName: employee.Name,
			Details:    `{"deleted": true}`,
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

// --- Helpers ---

func (s *employeeService) resolveCategory(ctx context.Context, id string) (*uuid.UUID, error) {
	if id == "" {
		return nil, nil
	}
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid category id")
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "category not found")
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &categoryID, nil
}

func toEmployeeResponse(e *model.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:         e.ID.String(),
		Name:       e.Name,
		Cedula:     e.Cedula,
		Email:      e.Email,
		Department: e.Department,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
	if e.CategoryID != nil {
		id := e.CategoryID.String()
		resp.CategoryID = &id
	}
	if e.Category != nil {
		resp.CategoryName = e.Category.Name
	}
	if e.UserID != nil {
		id := e.UserID.String()
		resp.UserID = &id
	}
	return resp
}
