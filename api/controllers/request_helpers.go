package controllers

import (
	"strconv"

	"Board/api/auth"
	"Board/api/responses"
	httpctx "Board/api/utils/httpctx"

	"github.com/gin-gonic/gin"
)

// viewer is the authenticated principal. Gated routes always have one.
func viewer(c *gin.Context) auth.Principal {
	p, _ := httpctx.CurrentPrincipal(c)
	return p
}

// uintParam parses a numeric path parameter, answering 400 when it is not one.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		responses.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		responses.BadRequest(c, "Cannot unmarshal body")
		return false
	}
	return true
}
