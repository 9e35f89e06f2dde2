package controllers

import (
	"net/http"

	"Board/api/responses"

	"github.com/gin-gonic/gin"
)

// FollowUser makes the caller follow :username and returns the target with
// its updated counters.
func (server *Server) FollowUser(c *gin.Context) {
	view, err := server.Ledger.Follow(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusCreated, userViewToDTO(*view))
}

func (server *Server) UnfollowUser(c *gin.Context) {
	view, err := server.Ledger.Unfollow(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, userViewToDTO(*view))
}

func (server *Server) GetFollowers(c *gin.Context) {
	views, err := server.Ledger.Followers(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, followersToDTOs(views))
}

func (server *Server) GetFollowings(c *gin.Context) {
	views, err := server.Ledger.Followings(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, userViewsToDTOs(views))
}
