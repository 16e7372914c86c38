package httpapi

import (
	"fmt"
	"io"
	"net/http"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/gin-gonic/gin"
)

func (h *Handler) me(c *gin.Context) {
	p, ok := middleware.Principal(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, userFromPrincipal(p))
}

func (h *Handler) updateAvatar(c *gin.Context) {
	p, ok := middleware.Principal(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badBody(c, err)
		return
	}
	if fh.Size > h.maxAvatar {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Avatar image is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		badBody(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxAvatar+1))
	if err != nil {
		badBody(c, err)
		return
	}
	if int64(len(data)) > h.maxAvatar {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Avatar image is too large"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	ctx := c.Request.Context()
	if _, err := h.auth.UpdateAvatar(ctx, p.IdentityID, data, contentType); err != nil {
		h.fail(c, err)
		return
	}
	identity, err := h.auth.Identity(ctx, p.IdentityID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userFromIdentity(identity))
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) setRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	role, ok := goContacts.ParseRole(req.Role)
	if !ok {
		h.fail(c, fmt.Errorf("%w: unknown role %q", goContacts.ErrInvalidInput, req.Role))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.auth.SetRole(ctx, id, role); err != nil {
		h.fail(c, err)
		return
	}
	identity, err := h.auth.Identity(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userFromIdentity(identity))
}
