package main

import (
	"context"
	"log"

	_ "github.com/jbaezgis/tiendita-sub000/api/swagger" // swagger docs
	"github.com/jbaezgis/tiendita-sub000/internal/cache"
	"github.com/jbaezgis/tiendita-sub000/internal/config"
	"github.com/jbaezgis/tiendita-sub000/internal/database"
	"github.com/jbaezgis/tiendita-sub000/internal/handler"
	"github.com/jbaezgis/tiendita-sub000/internal/middleware"
	"github.com/jbaezgis/tiendita-sub000/internal/repository"
	"github.com/jbaezgis/tiendita-sub000/internal/service"
	"github.com/jbaezgis/tiendita-sub000/internal/usersync"
	"github.com/jbaezgis/tiendita-sub000/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	rd "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Tiendita AJFA API
// @version         1.0
// @description     Internal company store: employee ordering with approval workflow and purchase limits.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := config.Load()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Admin seeding failed: %v", err)
	}

	rdb := rd.NewClient(&rd.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	storeRepo := repository.NewStoreConfigRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Background employee-user account sync
	dispatcher := usersync.NewDispatcher(employeeRepo, userRepo, auditRepo)
	go dispatcher.Run()
	defer dispatcher.Close()

	cartStore := cache.NewRedisCartStore(rdb, cache.DefaultCartTTL)

	userService := service.NewUserService(userRepo)
	employeeService := service.NewEmployeeService(employeeRepo, categoryRepo, auditRepo, txManager, dispatcher)
	categoryService := service.NewCategoryService(categoryRepo, auditRepo, txManager)
	catalogService := service.NewCatalogService(productRepo, auditRepo, txManager)
	cartService := service.NewCartService(cartStore, productRepo, employeeRepo)
	storeService := service.NewStoreService(storeRepo, auditRepo, txManager)
	orderService := service.NewOrderService(orderRepo, employeeRepo, storeRepo, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// The store configuration row must exist before any order is placed.
	if err := storeService.EnsureDefault(context.Background()); err != nil {
		log.Fatalf("Store configuration init failed: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	employeeHandler := handler.NewEmployeeHandler(employeeService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	cartHandler := handler.NewCartHandler(cartService, employeeService)
	orderHandler := handler.NewOrderHandler(orderService, cartService, employeeService)
	storeHandler := handler.NewStoreHandler(storeService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	employeeHandler.RegisterRoutes(api)
	categoryHandler.RegisterRoutes(api)
	catalogHandler.RegisterRoutes(api)
	cartHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	storeHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
