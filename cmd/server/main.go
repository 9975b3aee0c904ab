package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mohamedsillahkanu/icf-collect/internal/application/services"
	"github.com/mohamedsillahkanu/icf-collect/internal/bootstrap"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/database"
	"github.com/mohamedsillahkanu/icf-collect/internal/interfaces/middleware"
	"github.com/mohamedsillahkanu/icf-collect/internal/interfaces/rest"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	svcMgr := services.NewServiceManager(db, services.ManagerConfig{
		SheetsURL: os.Getenv("ICF_SHEETS_URL"),
		RelayURL:  os.Getenv("ICF_RELAY_URL"),
		Email:     os.Getenv("ICF_CATALOG_EMAIL"),
	})
	log.Println("🔧 Service manager initialized")

	// Create Gin router
	router := gin.Default()
	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Initialize handlers
	formHandler := rest.NewFormHandler(svcMgr)
	recordHandler := rest.NewRecordHandler(svcMgr)
	syncHandler := rest.NewSyncHandler(svcMgr)

	api := router.Group("/api")
	{
		forms := api.Group("/forms")
		{
			forms.GET("", formHandler.ListForms)
			forms.POST("", formHandler.SaveForm)
			forms.POST("/sync", formHandler.SyncCatalog)
			forms.GET("/:id", formHandler.GetForm)
			forms.DELETE("/:id", formHandler.DeleteForm)

			forms.POST("/:id/records", recordHandler.SubmitRecord)
			forms.GET("/:id/records", recordHandler.ListRecords)
			forms.GET("/:id/records/counts", recordHandler.CountRecords)
			forms.GET("/:id/records/aggregate", recordHandler.AggregateRecords)
			forms.GET("/:id/records/remote", recordHandler.PullRemote)

			forms.GET("/:id/orgunits", syncHandler.FetchOrgUnits)
			forms.POST("/:id/sync", syncHandler.RunSync)
		}

		cascade := api.Group("/cascade")
		{
			cascade.POST("/:id", formHandler.SaveCascade)
			cascade.GET("/:id", formHandler.GetCascade)
		}

		outbox := api.Group("/outbox")
		{
			outbox.GET("", recordHandler.OutboxStatus)
			outbox.POST("/flush", recordHandler.FlushOutbox)
		}

		api.POST("/sync/test", syncHandler.TestConnection)
	}

	// Start background workers
	svcMgr.Start()

	log.Printf("🚀 ICF Collect backend listening on http://localhost:%s", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("⚠️  Database close failed: %v", err)
	}
	log.Println("Server exiting")
}
