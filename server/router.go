package server

import (
	"net/http"
	"time"

	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/realtime"
	httpHandler "social-scheduler/interfaces/http"
	"social-scheduler/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	userHandler httpHandler.IUserHandler,
	postHandler httpHandler.IScheduledPostHandler,
	facebookOAuthHandler httpHandler.IFacebookOAuthHandler,
	youtubeAuthHandler httpHandler.IYouTubeAuthHandler,
	userRepository repository.IUser,
	postHub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.POST("/login", userHandler.Login)
	router.POST("/register", userHandler.Register)

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if facebookOAuthHandler != nil {
		router.GET("/auth/facebook", facebookOAuthHandler.GetAuthURL)
		router.GET("/auth/facebook/callback", facebookOAuthHandler.Callback)
	}
	if youtubeAuthHandler != nil {
		router.GET("/auth/youtube", youtubeAuthHandler.GetAuthURL)
		router.GET("/auth/youtube/callback", youtubeAuthHandler.HandleCallback)
	}

	api := router.Group("api")
	api.Use(middleware.Auth(userRepository))

	if facebookOAuthHandler != nil {
		api.GET("/facebook/status", facebookOAuthHandler.Status)
	}
	if youtubeAuthHandler != nil {
		api.GET("/youtube/oauth/status", youtubeAuthHandler.Status)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", postHandler.CreatePost)
		posts.GET("", postHandler.ListPosts)
		posts.GET("/:id", postHandler.GetPost)
		posts.PUT("/:id", postHandler.UpdatePost)
		posts.DELETE("/:id", postHandler.DeletePost)
		posts.POST("/:id/publish", postHandler.PublishNow)
		posts.POST("/:id/cancel", postHandler.CancelPost)
	}

	if postHub != nil {
		api.GET("/posts/stream", postHub.Serve)
	}

	scheduler := api.Group("/scheduler")
	{
		scheduler.GET("/platforms", postHandler.GetPlatforms)
		scheduler.GET("/platforms/:platform/limits", postHandler.GetPlatformLimits)
		scheduler.GET("/platforms/:platform/history", postHandler.GetHistory)
		scheduler.GET("/stats", postHandler.GetStats)
		scheduler.POST("/process", postHandler.ProcessJobs)
	}

	return router
}
