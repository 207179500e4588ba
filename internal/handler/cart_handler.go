package handler

import (
	"net/http"

	"github.com/jbaezgis/tiendita-sub000/internal/middleware"
	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/service"
	"github.com/jbaezgis/tiendita-sub000/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AddCartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type SetCartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

type CartHandler struct {
	cartService     service.CartService
	employeeService service.EmployeeService
}

func NewCartHandler(cartService service.CartService, employeeService service.EmployeeService) *CartHandler {
	return &CartHandler{cartService: cartService, employeeService: employeeService}
}

func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	cart := router.Group("/cart", middleware.RequireRole(model.RoleEmployee))
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddItem)
		cart.PUT("/items/:productId", h.SetQuantity)
		cart.DELETE("/items/:productId", h.RemoveItem)
		cart.DELETE("", h.ClearCart)
	}
}

func (h *CartHandler) currentEmployee(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return uuid.Nil, false
	}

	employee, err := h.employeeService.GetEmployeeByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "No employee record linked to this account"))
		return uuid.Nil, false
	}

	employeeID, err := uuid.Parse(employee.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Invalid employee id"))
		return uuid.Nil, false
	}
	return employeeID, true
}

// GetCart handles GET /cart
// @Summary      Get cart
// @Description  Returns the authenticated employee's cart with totals and limit advisory
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.CartResponse}
// @Failure      401  {object}  response.Response
// @Router       /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	employeeID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), employeeID)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cart))
}

// AddItem handles POST /cart/items
// @Summary      Add cart item
// @Description  Adds a product to the cart, merging quantities for repeated products
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      handler.AddCartItemRequest  true  "Item to add"
// @Success      200      {object}  response.Response{data=service.CartResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	employeeID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), employeeID, req.ProductID, req.Quantity)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cart))
}

// SetQuantity handles PUT /cart/items/:productId
// @Summary      Set cart item quantity
// @Description  Sets the quantity of a cart line. A quantity of zero removes the line.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        productId  path      string                          true  "Product ID"
// @Param        payload    body      handler.SetCartQuantityRequest  true  "New quantity"
// @Success      200        {object}  response.Response{data=service.CartResponse}
// @Failure      400        {object}  response.Response
// @Router       /cart/items/{productId} [put]
func (h *CartHandler) SetQuantity(c *gin.Context) {
	employeeID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	var req SetCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	cart, err := h.cartService.SetQuantity(c.Request.Context(), employeeID, c.Param("productId"), req.Quantity)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cart))
}

// RemoveItem handles DELETE /cart/items/:productId
// @Summary      Remove cart item
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Param        productId  path      string  true  "Product ID"
// @Success      200        {object}  response.Response{data=service.CartResponse}
// @Failure      400        {object}  response.Response
// @Router       /cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	employeeID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), employeeID, c.Param("productId"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cart))
}

// ClearCart handles DELETE /cart
// @Summary      Clear cart
// @Tags         cart
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	employeeID, ok := h.currentEmployee(c)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(c.Request.Context(), employeeID); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Cart cleared"))
}
