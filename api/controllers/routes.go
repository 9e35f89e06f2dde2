package controllers

import (
	"net/http"

	"Board/api/middlewares"
	"Board/api/monitoring"

	"github.com/gin-gonic/gin"
)

func (s *Server) initializeRoutes() {

	s.Router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.Router.GET("/metrics", monitoring.Handler())

	v1 := s.Router.Group("/api/v1")

	// Sign-up and authenticate are the only unauthenticated routes
	credentials := v1.Group("", middlewares.LoginRateLimitMiddleware())
	{
		credentials.POST("/users", s.CreateUser)
		credentials.POST("/users/authenticate", s.Authenticate)
	}

	gated := v1.Group("", middlewares.TokenAuthMiddleware(s.Codec, s.Users))
	{
		// Users routes
		gated.GET("/users", s.SearchUsers)
		gated.GET("/users/:username", s.GetUser)
		gated.PATCH("/users/:username", s.UpdateUser)
		gated.DELETE("/users/:username", s.DeleteUser)
		gated.GET("/users/:username/posts", s.GetUserPosts)
		gated.GET("/users/:username/replies", s.GetUserReplies)

		// Follow routes
		gated.GET("/users/:username/followers", s.GetFollowers)
		gated.GET("/users/:username/followings", s.GetFollowings)
		gated.POST("/users/:username/follows", s.FollowUser)
		gated.DELETE("/users/:username/follows", s.UnfollowUser)

		// Post routes
		gated.GET("/posts", s.GetPosts)
		gated.POST("/posts", s.CreatePost)
		gated.GET("/posts/:postId", s.GetPost)
		gated.PATCH("/posts/:postId", s.UpdatePost)
		gated.DELETE("/posts/:postId", s.DeletePost)

		// Like routes
		gated.POST("/posts/:postId/likes", s.ToggleLike)
		gated.GET("/posts/:postId/liked-users", s.GetPostLikedUsers)
		gated.GET("/users/:username/liked-users", s.GetUserLikedUsers)

		// Reply routes
		gated.GET("/posts/:postId/replies", s.GetReplies)
		gated.POST("/posts/:postId/replies", s.CreateReply)
		gated.PATCH("/posts/:postId/replies/:replyId", s.UpdateReply)
		gated.DELETE("/posts/:postId/replies/:replyId", s.DeleteReply)
	}
}
