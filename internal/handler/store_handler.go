package handler

import (
	"net/http"

	"github.com/jbaezgis/tiendita-sub000/internal/middleware"
	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/service"
	"github.com/jbaezgis/tiendita-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type StoreHandler struct {
	storeService service.StoreService
}

func NewStoreHandler(storeService service.StoreService) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

func (h *StoreHandler) RegisterRoutes(router *gin.RouterGroup) {
	store := router.Group("/store")
	{
		store.GET("/status", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor, model.RoleEmployee), h.GetStatus)
		store.GET("/config", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.GetConfig)
		store.PUT("/config", middleware.RequireRole(model.RoleAdmin), h.UpdateConfig)
	}
}

// GetStatus handles GET /store/status
// @Summary      Get store status
// @Description  Reports whether the store currently accepts orders
// @Tags         store
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /store/status [get]
func (h *StoreHandler) GetStatus(c *gin.Context) {
	open, err := h.storeService.IsOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to read store status"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"open": open,
	}))
}

// GetConfig handles GET /store/config
// @Summary      Get store configuration
// @Tags         store
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.StoreConfigResponse}
// @Router       /store/config [get]
func (h *StoreHandler) GetConfig(c *gin.Context) {
	config, err := h.storeService.GetConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to read store configuration"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, config))
}

// UpdateConfig handles PUT /store/config
// @Summary      Update store configuration
// @Description  Toggles the open flag, ordering window, season and maximum order amount
// @Tags         store
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdateStoreConfigRequest  true  "Configuration Payload"
// @Success      200      {object}  response.Response{data=service.StoreConfigResponse}
// @Failure      400      {object}  response.Response
// @Router       /store/config [put]
func (h *StoreHandler) UpdateConfig(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req service.UpdateStoreConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	config, err := h.storeService.UpdateConfig(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, config))
}
