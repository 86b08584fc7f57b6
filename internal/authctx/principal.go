// Package authctx carries the authenticated caller through a request.
package authctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Principal is the identity resolved by the auth middleware.
type Principal struct {
	ExternalID string
	Email      string
	Role       string
	AccountID  uuid.UUID
	Status     string
}

// Identity is a verified credential that may not yet have an account.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
}

type principalKey struct{}
type identityKey struct{}

const (
	ginPrincipalKey = "auth.principal"
	ginIdentityKey  = "auth.identity"
)

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// SetPrincipal stores p on both the gin context and the request context.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(ginPrincipalKey, p)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}

func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ginPrincipalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ginIdentityKey, id)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityKey{}, id))
}

func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ginIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
