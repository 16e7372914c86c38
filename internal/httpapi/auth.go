package httpapi

import (
	"net/http"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/gin-gonic/gin"
)

type userResponse struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Avatar   string          `json:"avatar"`
	Role     goContacts.Role `json:"role"`
}

func userFromIdentity(id goContacts.Identity) userResponse {
	return userResponse{ID: id.ID, Username: id.Username, Email: id.Email, Avatar: id.AvatarURL, Role: id.Role}
}

func userFromPrincipal(p *goContacts.Principal) userResponse {
	return userResponse{ID: p.IdentityID, Username: p.Username, Email: p.Email, Avatar: p.AvatarURL, Role: p.Role}
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func tokenBody(t *goContacts.AccessToken) tokenResponse {
	return tokenResponse{AccessToken: t.Token, TokenType: t.TokenType, ExpiresAt: t.ExpiresAt}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.auth.Register(c.Request.Context(), goContacts.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, userFromIdentity(res.Identity))
}

// loginRequest accepts the OAuth2 password form, where username carries
// the email, or the same fields as JSON.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badBody(c, err)
		return
	}
	email := req.Email
	if email == "" {
		email = req.Username
	}
	tok, err := h.auth.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenBody(tok))
}

func (h *Handler) verifyEmail(c *gin.Context) {
	res, err := h.auth.Confirm(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if res.AlreadyVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email is already confirmed."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email has been successfully confirmed."})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) requestEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if err := h.auth.RequestVerification(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Check your email for confirmation."})
}

func (h *Handler) passwordReset(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reset password email sent"})
}

type resetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) passwordResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *Handler) refresh(c *gin.Context) {
	bearer, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	tok, err := h.auth.Refresh(c.Request.Context(), bearer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenBody(tok))
}

func (h *Handler) logout(c *gin.Context) {
	bearer, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), bearer); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
