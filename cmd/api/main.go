package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/config"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/database"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/handlers"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/middleware"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)
	timesheetRepo := repositories.NewTimesheetRepository(db)
	projectRepo := repositories.NewProjectRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret)
	timesheetService := services.NewTimesheetService(timesheetRepo, projectRepo)
	projectService := services.NewProjectService(projectRepo, timesheetRepo)
	approvalService := services.NewApprovalService(timesheetRepo)

	authHandler := handlers.NewAuthHandler(authService)
	appHandler := handlers.NewAppHandler(timesheetService, projectService, approvalService)

	router := gin.Default()
	router.Use(middleware.RequestID())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	// Public routes
	router.POST("/api/auth/login", authHandler.Login)
	router.POST("/api/auth/register", authHandler.Register)

	// Authenticated routes
	api := router.Group("/api")
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		entries := api.Group("/entries")
		{
			entries.GET("", appHandler.ListEntries)
			entries.GET("/:id", appHandler.GetEntry)
			entries.POST("", appHandler.CreateEntry)
			entries.PUT("/:id", appHandler.UpdateEntry)
			entries.DELETE("/:id", appHandler.DeleteEntry)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", appHandler.ListProjects)
			projects.GET("/:id", appHandler.GetProject)
			projects.GET("/:id/entries", appHandler.ProjectEntries)

			projectsAdmin := projects.Group("")
			projectsAdmin.Use(middleware.AdminOnly())
			{
				projectsAdmin.POST("", appHandler.CreateProject)
				projectsAdmin.PUT("/:id", appHandler.UpdateProject)
				projectsAdmin.DELETE("/:id", appHandler.DeleteProject)
			}
		}

		// Approval workflow for managers and admins
		approvals := api.Group("/approvals")
		approvals.Use(middleware.ManagerOrAdminOnly())
		{
			approvals.POST("/selection", appHandler.SelectEntries)
			approvals.DELETE("/selection", appHandler.ClearSelection)
			approvals.POST("/stage", appHandler.StageChanges)
			approvals.GET("/pending", appHandler.PendingChanges)
			approvals.POST("/commit", appHandler.CommitChanges)
			approvals.DELETE("/session", appHandler.ResetSession)
		}
	}

	log.Printf("starting server on %s", cfg.Server.Port)
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
