package httpapi

import (
	"net/http"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/contacts"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Search              string `form:"search"`
	BirthdaysWithinDays int    `form:"birthdays_within_days"`
	Skip                int    `form:"skip"`
	Limit               int    `form:"limit"`
}

func owner(c *gin.Context) (string, bool) {
	p, ok := middleware.Principal(c)
	if !ok {
		return "", false
	}
	return p.IdentityID, true
}

func (h *Handler) listContacts(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badBody(c, err)
		return
	}
	out, err := h.contacts.List(c.Request.Context(), ownerID, contacts.Filter{
		Search:              q.Search,
		BirthdaysWithinDays: q.BirthdaysWithinDays,
		Skip:                q.Skip,
		Limit:               q.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []contacts.Contact{}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getContact(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	ct, err := h.contacts.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) createContact(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	var in contacts.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badBody(c, err)
		return
	}
	ct, err := h.contacts.Create(c.Request.Context(), ownerID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ct)
}

func (h *Handler) updateContact(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	var p contacts.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badBody(c, err)
		return
	}
	ct, err := h.contacts.Update(c.Request.Context(), ownerID, c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ct)
}

func (h *Handler) deleteContact(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		h.fail(c, goContacts.ErrUnauthenticated)
		return
	}
	if err := h.contacts.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
