package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mertcan/gradus/internal/app/controllers"
	"github.com/mertcan/gradus/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	promotionController *controllers.PromotionController,
	representativeController *controllers.RepresentativeController,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// Every route is authenticated; mutations additionally require the admin
	// role since they rewrite whole partitions.
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/years/current", promotionController.GetCurrentYear)
	authenticated.GET("/graduates", promotionController.ListGraduates)

	admin := authenticated.Group("")
	admin.Use(authMiddleware.RoleRequired(middleware.RoleAdmin))
	{
		admin.POST("/promotions", promotionController.Promote)
		admin.POST("/promotions/migrations", promotionController.RetryMigration)

		representatives := admin.Group("/years/:year/departments/:department/representatives")
		{
			representatives.GET("", representativeController.List)
			representatives.POST("", representativeController.Assign)
			representatives.PUT("/slots/:slot", representativeController.Replace)
			representatives.POST("/slots/:slot/deactivate", representativeController.Deactivate)
			representatives.DELETE("/slots/:slot", representativeController.Delete)
			representatives.DELETE("/students/:studentId", representativeController.Remove)
			representatives.POST("/repair", representativeController.Repair)
		}
	}
}
