package controllers

import (
	"net/http"

	"Board/api/identity"
	"Board/api/monitoring"
	"Board/api/responses"

	"github.com/gin-gonic/gin"
)

// CreateUser signs up a new account.
func (server *Server) CreateUser(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := server.Users.SignUp(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	monitoring.SignUps.Inc()
	responses.JSON(c, http.StatusCreated, userToDTO(user, false))
}

// Authenticate exchanges credentials for a bearer token.
func (server *Server) Authenticate(c *gin.Context) {
	var req CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := server.Users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		monitoring.LoginFailure.Inc()
		responses.ERROR(c, err)
		return
	}
	monitoring.LoginSuccess.Inc()
	responses.JSON(c, http.StatusOK, TokenDTO{AccessToken: token, TokenType: "Bearer"})
}

func (server *Server) SearchUsers(c *gin.Context) {
	views, err := server.Ledger.SearchUsers(c.Request.Context(), c.Query("query"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, userViewsToDTOs(views))
}

func (server *Server) GetUser(c *gin.Context) {
	view, err := server.Ledger.GetUser(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, userViewToDTO(*view))
}

// UpdateUser edits the caller's own profile. Only fields present in the
// body change.
func (server *Server) UpdateUser(c *gin.Context) {
	var patch identity.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	user, err := server.Users.UpdateProfile(c.Request.Context(), c.Param("username"), patch, viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, userToDTO(user, false))
}

func (server *Server) DeleteUser(c *gin.Context) {
	if err := server.Users.DeleteUser(c.Request.Context(), c.Param("username"), viewer(c)); err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, "User deleted")
}

func (server *Server) GetUserPosts(c *gin.Context) {
	views, err := server.Board.PostsByUser(c.Request.Context(), c.Param("username"), viewer(c))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, postsToDTOs(views))
}

func (server *Server) GetUserReplies(c *gin.Context) {
	replies, err := server.Board.RepliesByUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		responses.ERROR(c, err)
		return
	}
	responses.JSON(c, http.StatusOK, repliesToDTOs(replies))
}
