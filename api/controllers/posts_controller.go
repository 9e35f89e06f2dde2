package controllers

import (
	"net/http"

	"Board/api/responses"

	"github.com/gin-gonic/gin"
)

func (server *Server) GetPosts(c *gin.Context) {
	views, err := server.Board.ListPosts(c.Request.Context(), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, postsToDTOs(views))
}

func (server *Server) CreatePost(c *gin.Context) {
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := server.Board.CreatePost(c.Request.Context(), req.Body, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusCreated, postToDTO(view))
}

func (server *Server) GetPost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	view, err := server.Board.GetPost(c.Request.Context(), postID, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, postToDTO(view))
}

func (server *Server) UpdatePost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := server.Board.UpdatePost(c.Request.Context(), postID, req.Body, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, postToDTO(view))
}

func (server *Server) DeletePost(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	if err := server.Board.DeletePost(c.Request.Context(), postID, viewer(c)); err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, "Post deleted")
}
