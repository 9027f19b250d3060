package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrganizationHeader carries the caller's organization scope on every request
const OrganizationHeader = "X-Organization-ID"

// organizationID extracts and validates the organization scope from the
// request. On failure it writes the error response and returns ok=false.
func organizationID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(OrganizationHeader)
	if raw == "" {
		RespondBadRequest(c, "Missing "+OrganizationHeader+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondBadRequest(c, "Invalid "+OrganizationHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}
