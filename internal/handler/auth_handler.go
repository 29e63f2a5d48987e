package handler

import (
	"errors"
	"net/http"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	principalContextKey = "__principal"
	sessionUserKey      = "user_id"
)

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Authenticate resolves the caller from a bearer access token or the session
// cookie. Both paths reload the user so the role always comes from the
// database; a token or session for a deleted user yields no principal.
// Anonymous requests pass through without a principal.
func (a *API) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := auth.BearerToken(c.GetHeader("Authorization")); ok {
			if claimed, err := a.tokens.Parse(token); err == nil {
				if p, err := a.loadPrincipal(c, claimed.UserID); err == nil {
					c.Set(principalContextKey, p)
				}
			}
			c.Next()
			return
		}

		session := sessions.Default(c)
		if raw := session.Get(sessionUserKey); raw != nil {
			if id, ok := raw.(uint); ok {
				p, err := a.loadPrincipal(c, id)
				switch {
				case err == nil:
					c.Set(principalContextKey, p)
				case errors.Is(err, service.ErrUserNotFound):
					session.Clear()
					_ = session.Save()
				}
			}
		}
		c.Next()
	}
}

// loadPrincipal 从数据库读取用户当前的角色。
func (a *API) loadPrincipal(c *gin.Context, id uint) (auth.Principal, error) {
	user, err := a.users.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			a.logger.Warn("load request user", zap.Uint("user_id", id), zap.Error(err))
		}
		return auth.Principal{}, err
	}
	role, ok := auth.ParseRole(user.Role)
	if !ok {
		a.logger.Warn("user has unknown role", zap.Uint("user_id", id), zap.String("role", user.Role))
		return auth.Principal{}, auth.ErrUnauthorized
	}
	return auth.Principal{UserID: user.ID, Role: role}, nil
}

// RequireAuth 拒绝匿名请求。
func (a *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := principalFrom(c); !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCapability 要求调用者拥有指定能力。
func (a *API) RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		if !p.Can(capability) {
			respondError(c, http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AutomationAuth guards automation endpoints with the static bearer secret.
// Every failure produces the same 401 body.
func (a *API) AutomationAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.BearerTokenMatches(c.GetHeader("Authorization"), a.automationToken) {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (auth.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := value.(auth.Principal)
	return p, ok
}

// Register 创建读者账号并建立会话。
func (a *API) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}

	user, err := a.users.Register(c.Request.Context(), req)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.startSession(c, user, http.StatusCreated)
}

// Login 校验凭证，写入会话并签发访问令牌。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "login and password are required") {
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.startSession(c, user, http.StatusOK)
}

// Logout 清除会话。
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current user.
func (a *API) Me(c *gin.Context) {
	p, _ := principalFrom(c)
	user, err := a.users.Get(c.Request.Context(), p.UserID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *API) startSession(c *gin.Context, user *db.User, status int) {
	role, ok := auth.ParseRole(user.Role)
	if !ok {
		a.respondServiceError(c, auth.ErrUnauthorized)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		a.respondServiceError(c, err)
		return
	}

	token, err := a.tokens.Issue(auth.Principal{UserID: user.ID, Role: role})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(status, gin.H{"user": user, "token": token})
}
