package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AdminListUsers 列出全部账号。
func (a *API) AdminListUsers(c *gin.Context) {
	p, _ := principalFrom(c)
	users, err := a.users.List(c.Request.Context(), p)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SetUserRole 修改用户角色。
func (a *API) SetUserRole(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var req roleRequest
	if !bindJSON(c, &req, "role is required") {
		return
	}
	p, _ := principalFrom(c)

	user, err := a.users.SetRole(c.Request.Context(), p, id, req.Role)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
