package handler

import (
	"net/http"

	"github.com/jbaezgis/tiendita-sub000/internal/middleware"
	"github.com/jbaezgis/tiendita-sub000/internal/model"
	"github.com/jbaezgis/tiendita-sub000/internal/service"
	"github.com/jbaezgis/tiendita-sub000/pkg/pagination"
	"github.com/jbaezgis/tiendita-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor, model.RoleEmployee)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	products := router.Group("/products")
	{
		products.GET("", anyRole, h.BrowseProducts)
		products.GET("/:id", anyRole, h.GetProduct)

		products.GET("/all", adminOnly, h.ListAllProducts)
		products.POST("", adminOnly, h.CreateProduct)
		products.PUT("/:id", adminOnly, h.UpdateProduct)
		products.DELETE("/:id", adminOnly, h.DeleteProduct)
	}

	categories := router.Group("/product-categories")
	{
		categories.GET("", anyRole, h.ListProductCategories)
		categories.POST("", adminOnly, h.CreateProductCategory)
		categories.DELETE("/:id", adminOnly, h.DeleteProductCategory)
	}
}

func catalogFilter(c *gin.Context) service.CatalogFilter {
	params := pagination.Parse(c)
	return service.CatalogFilter{
		ProductCategoryID: c.Query("category_id"),
		Search:            c.Query("search"),
		Page:              params.Page,
		Limit:             params.Limit,
	}
}

// BrowseProducts handles GET /products listing only active products
// @Summary      Browse products
// @Description  Lists active catalog products with optional category and search filters
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        category_id  query     string  false  "Filter by product category"
// @Param        search       query     string  false  "Search by name or SKU"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /products [get]
func (h *CatalogHandler) BrowseProducts(c *gin.Context) {
	filter := catalogFilter(c)

	products, total, err := h.catalogService.BrowseProducts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch products"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	}))
}

// ListAllProducts handles GET /products/all including inactive products
// @Summary      List all products
// @Description  Lists every product regardless of active flag
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        category_id  query     string  false  "Filter by product category"
// @Param        search       query     string  false  "Search by name or SKU"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /products/all [get]
func (h *CatalogHandler) ListAllProducts(c *gin.Context) {
	filter := catalogFilter(c)

	products, total, err := h.catalogService.ListAllProducts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch products"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     filter.Page,
		"limit":    filter.Limit,
	}))
}

// GetProduct handles GET /products/:id
// @Summary      Get product by ID
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct handles POST /products
// @Summary      Create product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ProductRequest  true  "Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /products [post]
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct handles PUT /products/:id
// @Summary      Update product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.ProductRequest  true  "Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /products/{id} [put]
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct handles DELETE /products/:id
// @Summary      Delete product
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [delete]
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	userID, _ := currentUserID(c)

	if err := h.catalogService.DeleteProduct(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

// ListProductCategories handles GET /product-categories
// @Summary      List product categories
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.ProductCategory}
// @Router       /product-categories [get]
func (h *CatalogHandler) ListProductCategories(c *gin.Context) {
	categories, err := h.catalogService.ListProductCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch product categories"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateProductCategory handles POST /product-categories
// @Summary      Create product category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ProductCategoryRequest  true  "Category Payload"
// @Success      201      {object}  response.Response{data=model.ProductCategory}
// @Failure      400      {object}  response.Response
// @Router       /product-categories [post]
func (h *CatalogHandler) CreateProductCategory(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req service.ProductCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	category, err := h.catalogService.CreateProductCategory(c.Request.Context(), userID, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// DeleteProductCategory handles DELETE /product-categories/:id
// @Summary      Delete product category
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /product-categories/{id} [delete]
func (h *CatalogHandler) DeleteProductCategory(c *gin.Context) {
	userID, _ := currentUserID(c)

	if err := h.catalogService.DeleteProductCategory(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product category deleted successfully"))
}
