package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/anongrove/grove-backend/internal/handler"
	"github.com/anongrove/grove-backend/internal/middleware"
	"github.com/anongrove/grove-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	postHandler *handler.PostHandler,
	adminHandler *handler.AdminHandler,
	jwtManager *jwt.Manager,
) {
	api := router.Group("/api/v1")

	// 공개 영역
	posts := api.Group("/posts")
	{
		posts.GET("", postHandler.ListFeed)
		posts.POST("", postHandler.SubmitPost)
		posts.GET("/author/:hash", postHandler.GetMyPost)
		posts.GET("/:id", postHandler.GetPost)
		posts.PATCH("/:id", postHandler.EditPost)
	}

	// 관리 영역 (운영자 전용)
	admin := api.Group("/admin", middleware.JWTAuth(jwtManager), middleware.RequireModerator())
	{
		admin.GET("/posts", adminHandler.ListPosts)
		admin.GET("/posts/:id", adminHandler.GetPost)
		admin.POST("/posts/:id/accept", adminHandler.AcceptPost)
		admin.POST("/posts/:id/reject", adminHandler.RejectPost)
		admin.DELETE("/posts/:id", adminHandler.DeletePost)
		admin.GET("/posts/:id/history", adminHandler.GetHistory)
	}
}
