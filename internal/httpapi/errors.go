package httpapi

import (
	"errors"
	"net/http"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/contacts"
	"github.com/gin-gonic/gin"
)

// errorStatus maps a domain error to a status and a client-safe detail.
// Codec diagnostics and store causes never reach the body.
func errorStatus(err error) (int, any) {
	var verr *contacts.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Fields
	case errors.Is(err, contacts.ErrNotFound):
		return http.StatusNotFound, "Contact not found"
	case errors.Is(err, contacts.ErrDuplicateEmail):
		return http.StatusConflict, "Contact with this email already exists."

	case errors.Is(err, goContacts.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, goContacts.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect login or/and password."
	case errors.Is(err, goContacts.ErrNotVerified):
		return http.StatusUnauthorized, "User is not confirmed."
	case errors.Is(err, goContacts.ErrUnauthenticated):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, goContacts.ErrForbidden):
		return http.StatusForbidden, "Not enough permissions"
	case errors.Is(err, goContacts.ErrDuplicateEmail):
		return http.StatusConflict, "Cannot create user, email already in use."
	case errors.Is(err, goContacts.ErrDuplicateUsername):
		return http.StatusConflict, "Cannot create user, username already exists."
	case errors.Is(err, goContacts.ErrInvalidToken), errors.Is(err, goContacts.ErrTokenUsed):
		return http.StatusBadRequest, "invalid or expired token"
	case errors.Is(err, goContacts.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, goContacts.ErrPasswordPolicy), errors.Is(err, goContacts.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, goContacts.ErrUploadFailed):
		return http.StatusInternalServerError, "Avatar upload failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, detail := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// badBody answers a request whose body or query could not be decoded.
func badBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
}
