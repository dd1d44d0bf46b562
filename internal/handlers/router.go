package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sestra24/recruitment-service/internal/services"
	"github.com/sestra24/recruitment-service/internal/utils"
)

type HandlerManager struct {
	applicationHandler *ApplicationHandler
	testHandler        *TestHandler
	documentHandler    *DocumentHandler
	adminHandler       *AdminHandler
	logger             utils.Logger
}

func NewHandlerManager(
	applicationService services.ApplicationService,
	testService services.TestService,
	documentService services.DocumentService,
	importService services.QuestionImportService,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		applicationHandler: NewApplicationHandler(applicationService, logger),
		testHandler:        NewTestHandler(testService, logger),
		documentHandler:    NewDocumentHandler(documentService, logger),
		adminHandler:       NewAdminHandler(applicationService, importService, logger),
		logger:             logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "recruitment-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.logger))
	{
		applications := v1.Group("/applications")
		{
			applications.GET("/me", hm.applicationHandler.GetMyApplication)
			applications.POST("/steps/:step", hm.applicationHandler.CompleteStep)
		}

		test := v1.Group("/test")
		{
			test.POST("/start", hm.testHandler.StartTest)
			test.PUT("/answers", hm.testHandler.SelectAnswer)
			test.POST("/advance", hm.testHandler.Advance)
			test.POST("/submit", hm.testHandler.SubmitTest)
			test.GET("/time-remaining", hm.testHandler.TimeRemaining)
		}

		documents := v1.Group("/documents")
		{
			documents.POST("/:kind", hm.documentHandler.Upload)
			documents.DELETE("/:kind", hm.documentHandler.Remove)
		}

		admin := v1.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.GET("/applications", hm.adminHandler.ListApplications)
			admin.POST("/applications/:id/verify-documents", hm.adminHandler.VerifyDocuments)
			admin.POST("/applications/:id/interview", hm.adminHandler.ScheduleInterview)
			admin.POST("/applications/:id/activate", hm.adminHandler.Activate)
			admin.POST("/applications/:id/reject", hm.adminHandler.Reject)
			admin.GET("/applications/:id/answers/export", hm.adminHandler.ExportAnswers)
			admin.POST("/questions/import", hm.adminHandler.ImportQuestions)
		}
	}
}
