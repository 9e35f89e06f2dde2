package controllers

import (
	"net/http"

	"Board/api/responses"

	"github.com/gin-gonic/gin"
)

// ToggleLike likes :postId for the caller, or takes the like back if there
// already is one. The response carries the post's new state.
func (server *Server) ToggleLike(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	view, err := server.Ledger.ToggleLike(c.Request.Context(), postID, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, postToDTO(view))
}

func (server *Server) GetPostLikedUsers(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	views, err := server.Ledger.LikedUsersByPost(c.Request.Context(), postID, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, likedUsersToDTOs(views))
}

func (server *Server) GetUserLikedUsers(c *gin.Context) {
	views, err := server.Ledger.LikedUsersByUser(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, likedUsersToDTOs(views))
}
