package handler

import (
	"net/http"

	"github.com/jbaezgis/tiendita-sub000/internal/middleware"
	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/internal/service"
	"github.com/jbaezgis/tiendita-sub000/pkg/pagination"
	"github.com/jbaezgis/tiendita-sub000/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type OrderHandler struct {
	orderService    service.OrderService
	cartService     service.CartService
	employeeService service.EmployeeService
}

func NewOrderHandler(
	orderService service.OrderService,
	cartService service.CartService,
	employeeService service.EmployeeService,
) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		cartService:     cartService,
		employeeService: employeeService,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/orders")
	{
		orders.POST("", middleware.RequireRole(model.RoleEmployee), h.CreateOrder)
		orders.GET("/limit", middleware.RequireRole(model.RoleEmployee), h.GetPurchaseLimit)
		orders.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor, model.RoleEmployee), h.ListOrders)
		orders.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor, model.RoleEmployee), h.GetOrder)

		orders.PATCH("/:id/approve", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.ApproveOrder)
		orders.PATCH("/:id/reject", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.RejectOrder)
		orders.PATCH("/:id/deliver", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.DeliverOrder)
		orders.PATCH("/:id/cancel", middleware.RequireRole(model.RoleEmployee), h.CancelOrder)
	}
}

// currentEmployee resolves the employee record linked to the authenticated user.
func (h *OrderHandler) currentEmployee(c *gin.Context) (uuid.UUID, string, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return uuid.Nil, "", false
	}

	employee, err := h.employeeService.GetEmployeeByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "No employee record linked to this account"))
		return uuid.Nil, "", false
	}

	employeeID, err := uuid.Parse(employee.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Invalid employee id"))
		return uuid.Nil, "", false
	}
	return employeeID, userID, true
}

// CreateOrder submits the current cart as a new order
// @Summary      Submit order
// @Description  Converts the authenticated employee's cart into a pending order and clears the cart
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      handler.CreateOrderRequest  false  "Order options"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	employeeID, userID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	lines, err := h.cartService.CartLines(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		EmployeeID: employeeID,
		Lines:      lines,
		Priority:   req.Priority,
		Notes:      req.Notes,
		ActorID:    userID,
	})
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	// The cart is spent once the order exists. A failed clear leaves a stale
	// cart behind but never the order.
	_ = h.cartService.ClearCart(c.Request.Context(), employeeID)

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// GetPurchaseLimit reports the employee's ceiling against a candidate total
// @Summary      Get purchase limit
// @Description  Returns the authenticated employee's purchase limit, headroom and near-limit flag. Defaults to the current cart total when no total is given.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        total  query     string  false  "Candidate total to evaluate"
// @Success      200    {object}  response.Response{data=service.LimitInfo}
// @Failure      400    {object}  response.Response
// @Router       /orders/limit [get]
func (h *OrderHandler) GetPurchaseLimit(c *gin.Context) {
	employeeID, _, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	var total decimal.Decimal
	if raw := c.Query("total"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid total"))
			return
		}
		total = parsed
	} else {
		lines, err := h.cartService.CartLines(c.Request.Context(), employeeID)
		if err != nil {
			c.JSON(response.FromError(err))
			return
		}
		for _, line := range lines {
			total = total.Add(line.Subtotal)
		}
	}

	info, err := h.orderService.PurchaseLimitFor(c.Request.Context(), employeeID, total)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, info))
}

// ListOrders handles GET /orders with role-scoped visibility
// @Summary      List orders
// @Description  Admins and supervisors see every order and may filter by status or employee. Employees only see their own.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        status       query     string  false  "Filter by status"
// @Param        employee_id  query     string  false  "Filter by employee (admin/supervisor only)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.OrderFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	role := c.GetString("userRole")
	if role == model.RoleEmployee {
		employeeID, _, ok := h.currentEmployee(c)
		if !ok {
			return
		}
		filter.EmployeeID = &employeeID
	} else if raw := c.Query("employee_id"); raw != "" {
		employeeID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid employee_id"))
			return
		}
		filter.EmployeeID = &employeeID
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch orders"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}

// GetOrder handles GET /orders/:id
// @Summary      Get order by ID
// @Description  Fetch a single order with its items. Employees may only read their own orders.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	if c.GetString("userRole") == model.RoleEmployee {
		employeeID, _, ok := h.currentEmployee(c)
		if !ok {
			return
		}
		if order.EmployeeID != employeeID.String() {
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: not your order"))
			return
		}
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ApproveOrder handles PATCH /orders/:id/approve
// @Summary      Approve order
// @Description  Moves a pending order to APPROVED. Item quantities are approved in full.
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /orders/{id}/approve [patch]
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	order, err := h.orderService.ApproveOrder(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// RejectOrder handles PATCH /orders/:id/reject
// @Summary      Reject order
// @Description  Moves a pending order to REJECTED. A reason of at least 10 characters is required.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      handler.RejectOrderRequest  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /orders/{id}/reject [patch]
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	order, err := h.orderService.RejectOrder(c.Request.Context(), c.Param("id"), userID, req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeliverOrder handles PATCH /orders/:id/deliver
// @Summary      Deliver order
// @Description  Moves an approved order to DELIVERED and records delivered quantities
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /orders/{id}/deliver [patch]
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return
	}

	order, err := h.orderService.DeliverOrder(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CancelOrder handles PATCH /orders/:id/cancel
// @Summary      Cancel order
// @Description  Lets the owning employee cancel their own pending order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /orders/{id}/cancel [patch]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	employeeID, _, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), c.Param("id"), employeeID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
