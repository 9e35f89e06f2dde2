package controllers

import (
	"net/http"

	"Board/api/responses"

	"github.com/gin-gonic/gin"
)

func (server *Server) GetReplies(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	replies, err := server.Board.ListReplies(c.Request.Context(), postID)
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, repliesToDTOs(replies))
}

func (server *Server) CreateReply(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := server.Board.CreateReply(c.Request.Context(), postID, req.Body, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusCreated, replyToDTO(reply))
}

func (server *Server) UpdateReply(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	replyID, ok := uintParam(c, "replyId")
	if !ok {
		return
	}
	var req BodyRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := server.Board.UpdateReply(c.Request.Context(), postID, replyID, req.Body, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, replyToDTO(reply))
}

func (server *Server) DeleteReply(c *gin.Context) {
	postID, ok := uintParam(c, "postId")
	if !ok {
		return
	}
	replyID, ok := uintParam(c, "replyId")
	if !ok {
		return
	}
	if err := server.Board.DeleteReply(c.Request.Context(), postID, replyID, viewer(c)); err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, "Reply deleted")
}
