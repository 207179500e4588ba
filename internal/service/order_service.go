package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	ws "github.com/jbaezgis/tiendita-sub000/internal/websocket"
	"github.com/jbaezgis/tiendita-sub000/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinRejectionReasonLen is the minimum accepted length for a rejection reason.
const MinRejectionReasonLen = 10

// --- DTOs ---

type CreateOrderInput struct {
	EmployeeID uuid.UUID
	Lines      []model.CartLine
	Priority   string
	Notes      string
	ActorID    string // user id of the requester, for audit
}

type OrderItemResponse struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	ProductName       string  `json:"product_name"`
	Quantity          int     `json:"quantity"`
	ApprovedQuantity  *int    `json:"approved_quantity"`
	DeliveredQuantity int     `json:"delivered_quantity"`
	UnitPrice         string  `json:"unit_price"`
	Subtotal          string  `json:"subtotal"`
	Status            string  `json:"status"`
	Notes             string  `json:"notes,omitempty"`
}

type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	EmployeeID      string              `json:"employee_id"`
	EmployeeName    string              `json:"employee_name,omitempty"`
	OrderDate       string              `json:"order_date"`
	Subtotal        string              `json:"subtotal"`
	Total           string              `json:"total"`
	Status          string              `json:"status"`
	Priority        string              `json:"priority"`
	Notes           string              `json:"notes,omitempty"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	ApprovedBy      *string             `json:"approved_by"`
	ApproverName    string              `json:"approver_name,omitempty"`
	ApprovedAt      *string             `json:"approved_at"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       string              `json:"created_at"`
}

// LimitInfo describes an employee's purchase ceiling relative to a candidate total.
type LimitInfo struct {
	Limit     *string `json:"limit"` // null = no ceiling
	Total     string  `json:"total"`
	Headroom  *string `json:"headroom"`
	NearLimit bool    `json:"near_limit"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]OrderResponse, int64, error)
	ApproveOrder(ctx context.Context, orderID string, approverID string) (OrderResponse, error)
	RejectOrder(ctx context.Context, orderID string, approverID string, reason string) (OrderResponse, error)
	DeliverOrder(ctx context.Context, orderID string, actorID string) (OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string, employeeID uuid.UUID) (OrderResponse, error)
	PurchaseLimitFor(ctx context.Context, employeeID uuid.UUID, candidateTotal decimal.Decimal) (LimitInfo, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	employeeRepo repository.EmployeeRepository
	storeRepo    repository.StoreConfigRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub // optional, nil in tests
	now          func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	employeeRepo repository.EmployeeRepository,
	storeRepo repository.StoreConfigRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		employeeRepo: employeeRepo,
		storeRepo:    storeRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
		now:          time.Now,
	}
}

// --- Guards ---

// withinLimit is the purchase-limit guard: a missing category or ceiling allows
// any total.
func withinLimit(total decimal.Decimal, category *model.Category) bool {
	if category == nil || !category.PurchaseLimit.Valid {
		return true
	}
	return total.LessThanOrEqual(category.PurchaseLimit.Decimal)
}

// nearLimit reports whether the remaining headroom is at or under 10% of the
// ceiling. Advisory only, never an enforcement rule.
func nearLimit(total decimal.Decimal, category *model.Category) bool {
	if category == nil || !category.PurchaseLimit.Valid {
		return false
	}
	limit := category.PurchaseLimit.Decimal
	headroom := limit.Sub(total)
	threshold := limit.Mul(decimal.NewFromFloat(0.1))
	return headroom.LessThanOrEqual(threshold)
}

// --- Implementation ---

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (OrderResponse, error) {
	if len(input.Lines) == 0 {
		return OrderResponse{}, apperrors.New(apperrors.ErrEmptyCart)
	}

	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	switch priority {
	case model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
	default:
		return OrderResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid priority: "+priority)
	}

	employee, err := s.employeeRepo.FindByID(ctx, input.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return OrderResponse{}, fmt.Errorf("failed to load employee: %w", err)
	}
	if !employee.Active {
		return OrderResponse{}, apperrors.Wrap(apperrors.ErrForbidden, "employee is inactive")
	}

	now := s.now()

	config, err := s.storeRepo.Get(ctx)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to load store configuration: %w", err)
	}
	if !config.OpenAt(now) {
		return OrderResponse{}, apperrors.New(apperrors.ErrStoreClosed)
	}

	// Authoritative total: re-derive every subtotal from the snapshotted price.
	subtotal := decimal.Zero
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return OrderResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "line quantity must be positive")
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if !withinLimit(subtotal, employee.Category) {
		return OrderResponse{}, apperrors.New(apperrors.ErrLimitExceeded)
	}
	if subtotal.GreaterThan(config.MaxOrderAmount) {
		return OrderResponse{}, apperrors.New(apperrors.ErrMaxAmountExceeded)
	}

	var order model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		outstanding, checkErr := s.orderRepo.HasOutstanding(txCtx, employee.ID)
		if checkErr != nil {
			return fmt.Errorf("failed to check outstanding orders: %w", checkErr)
		}
		if outstanding {
			return apperrors.New(apperrors.ErrOutstandingOrderExists)
		}

		orderNumber, seqErr := s.orderRepo.NextOrderNumber(txCtx, now)
		if seqErr != nil {
			return fmt.Errorf("failed to generate order number: %w", seqErr)
		}

		order = model.Order{
			OrderNumber: orderNumber,
			EmployeeID:  employee.ID,
			CategoryID:  employee.CategoryID,
			OrderDate:   now,
			Subtotal:    subtotal,
			Total:       subtotal, // no tax or discount logic
			Status:      model.OrderStatusPending,
			Priority:    priority,
			Notes:       input.Notes,
			CreatedBy:   parseActor(input.ActorID),
		}
		if createErr := s.orderRepo.Create(txCtx, &order); createErr != nil {
			// The partial unique index caught a concurrent outstanding order.
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperrors.New(apperrors.ErrOutstandingOrderExists)
			}
			return fmt.Errorf("failed to create order: %w", createErr)
		}

		for _, line := range input.Lines {
			item := &model.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
				Status:    model.OrderStatusPending,
			}
			if itemErr := s.orderRepo.CreateItem(txCtx, item); itemErr != nil {
				return fmt.Errorf("failed to create order item: %w", itemErr)
			}
		}

		return s.audit(txCtx, input.ActorID, model.ActionCreateOrder, order.ID.String(), orderNumber, map[string]interface{}{
			"order_number": orderNumber,
			"employee_id":  employee.ID.String(),
			"total":        subtotal.StringFixed(2),
			"priority":     priority,
			"line_count":   len(input.Lines),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	loaded, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}

	s.publish("order.created", loaded)
	return toOrderResponse(loaded), nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid order id")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, apperrors.Wrap(apperrors.ErrNotFound, "order not found")
		}
		return OrderResponse{}, fmt.Errorf("failed to load order: %w", err)
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]OrderResponse, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	result := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, toOrderResponse(&orders[i]))
	}
	return result, total, nil
}

func (s *orderService) ApproveOrder(ctx context.Context, orderID string, approverID string) (OrderResponse, error) {
	id, approver, err := parseTransitionIDs(orderID, approverID)
	if err != nil {
		return OrderResponse{}, err
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.orderRepo.FindByID(txCtx, id); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrNotFound, "order not found")
			}
			return fmt.Errorf("failed to load order: %w", findErr)
		}

		rows, txErr := s.orderRepo.Transition(txCtx, id,
			[]string{model.OrderStatusPending},
			map[string]interface{}{
				"status":      model.OrderStatusApproved,
				"approved_by": approver,
				"approved_at": now,
				"updated_by":  approver,
			})
		if txErr != nil {
			return fmt.Errorf("failed to approve order: %w", txErr)
		}
		if rows == 0 {
			return apperrors.New(apperrors.ErrNotPending)
		}

		// Items follow the parent in lockstep; the approved quantity is the
		// requested quantity (no partial approval).
		if itemErr := s.orderRepo.UpdateItems(txCtx, id, map[string]interface{}{
			"status":            model.OrderStatusApproved,
			"approved_quantity": gorm.Expr("quantity"),
		}); itemErr != nil {
			return fmt.Errorf("failed to approve order items: %w", itemErr)
		}

		return s.audit(txCtx, approverID, model.ActionApproveOrder, id.String(), "", nil)
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return s.reloadAndPublish(ctx, id, "order.approved")
}

func (s *orderService) RejectOrder(ctx context.Context, orderID string, approverID string, reason string) (OrderResponse, error) {
	if len(strings.TrimSpace(reason)) < MinRejectionReasonLen {
		return OrderResponse{}, apperrors.New(apperrors.ErrReasonTooShort)
	}

	id, approver, err := parseTransitionIDs(orderID, approverID)
	if err != nil {
		return OrderResponse{}, err
	}

	now := s.now()
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.orderRepo.FindByID(txCtx, id); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrNotFound, "order not found")
			}
			return fmt.Errorf("failed to load order: %w", findErr)
		}

		rows, txErr := s.orderRepo.Transition(txCtx, id,
			[]string{model.OrderStatusPending},
			map[string]interface{}{
				"status":           model.OrderStatusRejected,
				"rejection_reason": reason,
				"approved_by":      approver,
				"approved_at":      now,
				"updated_by":       approver,
			})
		if txErr != nil {
			return fmt.Errorf("failed to reject order: %w", txErr)
		}
		if rows == 0 {
			return apperrors.New(apperrors.ErrNotPending)
		}

		if itemErr := s.orderRepo.UpdateItems(txCtx, id, map[string]interface{}{
			"status": model.OrderStatusRejected,
		}); itemErr != nil {
			return fmt.Errorf("failed to reject order items: %w", itemErr)
		}

		return s.audit(txCtx, approverID, model.ActionRejectOrder, id.String(), "", map[string]interface{}{
			"reason": reason,
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return s.reloadAndPublish(ctx, id, "order.rejected")
}

func (s *orderService) DeliverOrder(ctx context.Context, orderID string, actorID string) (OrderResponse, error) {
	id, actor, err := parseTransitionIDs(orderID, actorID)
	if err != nil {
		return OrderResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.orderRepo.FindByID(txCtx, id); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrNotFound, "order not found")
			}
			return fmt.Errorf("failed to load order: %w", findErr)
		}

		rows, txErr := s.orderRepo.Transition(txCtx, id,
			[]string{model.OrderStatusApproved},
			map[string]interface{}{
				"status":     model.OrderStatusDelivered,
				"updated_by": actor,
			})
		if txErr != nil {
			return fmt.Errorf("failed to deliver order: %w", txErr)
		}
		if rows == 0 {
			return apperrors.New(apperrors.ErrNotApproved)
		}

		if itemErr := s.orderRepo.UpdateItems(txCtx, id, map[string]interface{}{
			"status":             model.OrderStatusDelivered,
			"delivered_quantity": gorm.Expr("COALESCE(approved_quantity, quantity)"),
		}); itemErr != nil {
			return fmt.Errorf("failed to deliver order items: %w", itemErr)
		}

		return s.audit(txCtx, actorID, model.ActionDeliverOrder, id.String(), "", nil)
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return s.reloadAndPublish(ctx, id, "order.delivered")
}

func (s *orderService) CancelOrder(ctx context.Context, orderID string, employeeID uuid.UUID) (OrderResponse, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return OrderResponse{}, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid order id")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.orderRepo.FindByID(txCtx, id)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperrors.Wrap(apperrors.ErrNotFound, "order not found")
			}
			return fmt.Errorf("failed to load order: %w", findErr)
		}
		if order.EmployeeID != employeeID {
			return apperrors.New(apperrors.ErrNotOwner)
		}

		rows, txErr := s.orderRepo.Transition(txCtx, id,
			[]string{model.OrderStatusPending},
			map[string]interface{}{
				"status": model.OrderStatusCancelled,
			})
		if txErr != nil {
			return fmt.Errorf("failed to cancel order: %w", txErr)
		}
		if rows == 0 {
			return apperrors.New(apperrors.ErrNotPending)
		}

		if itemErr := s.orderRepo.UpdateItems(txCtx, id, map[string]interface{}{
			"status": model.OrderStatusCancelled,
		}); itemErr != nil {
			return fmt.Errorf("failed to cancel order items: %w", itemErr)
		}

		return s.audit(txCtx, "", model.ActionCancelOrder, id.String(), "", map[string]interface{}{
			"employee_id": employeeID.String(),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return s.reloadAndPublish(ctx, id, "order.cancelled")
}

func (s *orderService) PurchaseLimitFor(ctx context.Context, employeeID uuid.UUID, candidateTotal decimal.Decimal) (LimitInfo, error) {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LimitInfo{}, apperrors.Wrap(apperrors.ErrNotFound, "employee not found")
		}
		return LimitInfo{}, fmt.Errorf("failed to load employee: %w", err)
	}

	info := LimitInfo{Total: candidateTotal.StringFixed(2)}
	if employee.Category != nil && employee.Category.PurchaseLimit.Valid {
		limit := employee.Category.PurchaseLimit.Decimal
		limitStr := limit.StringFixed(2)
		headroom := limit.Sub(candidateTotal).StringFixed(2)
		info.Limit = &limitStr
		info.Headroom = &headroom
		info.NearLimit = nearLimit(candidateTotal, employee.Category)
	}
	return info, nil
}

// --- Helpers ---

func parseActor(actorID string) *uuid.UUID {
	if parsed, err := uuid.Parse(actorID); err == nil {
		return &parsed
	}
	return nil
}

func parseTransitionIDs(orderID, userID string) (uuid.UUID, uuid.UUID, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid order id")
	}
	actor, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid user id")
	}
	return id, actor, nil
}

func (s *orderService) audit(ctx context.Context, actorID, action, entityID, entityName string, payload map[string]interface{}) error {
	details := ""
	if payload != nil {
		raw, _ := json.Marshal(payload)
		details = string(raw)
	}
	entry := &model.AuditLog{
		UserID:     parseActor(actorID),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    details,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *orderService) reloadAndPublish(ctx context.Context, id uuid.UUID, event string) (OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload order: %w", err)
	}
	s.publish(event, order)
	return toOrderResponse(order), nil
}

func (s *orderService) publish(event string, order *model.Order) {
	if s.hub == nil {
		return
	}
	employeeName := ""
	if order.Employee != nil {
		employeeName = order.Employee.Name
	}
	go s.hub.PublishOrderEvent(ws.OrderEvent{
		Event:       event,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Employee:    employeeName,
		Total:       order.Total.StringFixed(2),
	})
}

func toOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		EmployeeID:      o.EmployeeID.String(),
		OrderDate:       o.OrderDate.Format(time.RFC3339),
		Subtotal:        o.Subtotal.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		Status:          o.Status,
		Priority:        o.Priority,
		Notes:           o.Notes,
		RejectionReason: o.RejectionReason,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}

	if o.Employee != nil {
		resp.EmployeeName = o.Employee.Name
	}
	if o.ApprovedBy != nil {
		id := o.ApprovedBy.String()
		resp.ApprovedBy = &id
	}
	if o.Approver != nil {
		resp.ApproverName = o.Approver.Name
	}
	if o.ApprovedAt != nil {
		at := o.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &at
	}

	resp.Items = make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		itemResp := OrderItemResponse{
			ID:                item.ID.String(),
			ProductID:         item.ProductID.String(),
			Quantity:          item.Quantity,
			ApprovedQuantity:  item.ApprovedQuantity,
			DeliveredQuantity: item.DeliveredQuantity,
			UnitPrice:         item.UnitPrice.StringFixed(2),
			Subtotal:          item.Subtotal.StringFixed(2),
			Status:            item.Status,
			Notes:             item.Notes,
		}
		if item.Product != nil {
			itemResp.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, itemResp)
	}

	return resp
}
