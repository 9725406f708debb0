package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxOperatorID is the gin context key holding the authenticated operator id.
const ctxOperatorID = "operatorId"

const (
	errMissingAuth  = "missing Authorization header"
	errAuthFormat   = "invalid Authorization header format"
	errInvalidToken = "invalid or expired token"
)

// requireOperator rejects requests without a valid bearer token.
func (h *Handler) requireOperator(c *gin.Context) {
	id, errMsg := h.bearerOperator(c)
	if errMsg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
		return
	}
	c.Set(ctxOperatorID, id)
	c.Next()
}

// bearerOperator resolves the Authorization header to an operator id. errMsg
// is empty on success.
func (h *Handler) bearerOperator(c *gin.Context) (id int, errMsg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return 0, errMissingAuth
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return 0, errAuthFormat
	}
	id, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		return 0, errInvalidToken
	}
	return id, ""
}
