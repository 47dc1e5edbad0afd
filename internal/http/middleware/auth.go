// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token passthrough. None of the services mint or
// verify tokens themselves; the token on an inbound request is carried on the
// request context so downstream HTTP clients can forward it unchanged, and
// authorization decisions stay with whichever service owns the resource.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mkurosawa/go-deposit-backend/internal/client"
)

// BearerPassthrough extracts an Authorization: Bearer token from the inbound
// request and stashes it on the request context via client.WithToken.
//
// Requests without a token proceed unauthenticated; downstream services make
// their own call on whether that is acceptable.
func BearerPassthrough() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			tok := strings.TrimSpace(auth[len(prefix):])
			if tok != "" {
				ctx := client.WithToken(c.Request.Context(), tok)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}
