package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type registerRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	Name     string `json:"name" form:"name"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
}

func toUserResponse(u domain.User) userResponse {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: created}
}

func (h *handlers) register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBind(&body); err != nil {
		writeBindError(c, err)
		return
	}
	u, err := h.users.Register(c.Request.Context(), usersvc.RegisterInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(*u)})
}

func (h *handlers) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBind(&body); err != nil {
		writeBindError(c, err)
		return
	}
	u, token, err := h.users.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		User:        toUserResponse(*u),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   h.users.AccessTTLSeconds(),
	})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), c.GetString(tokenCtxKey)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

func (h *handlers) me(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(*u)})
}
