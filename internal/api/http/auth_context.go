package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	"github.com/campus-market/meetup-hub/internal/domain/user"
)

type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser represents the authenticated user in context.
type AuthUser struct {
	UserID    uuid.UUID
	Username  string
	Role      user.Role
	SessionID uuid.UUID
}

// Actor is the identity the meetup services authorize against.
func (u AuthUser) Actor() meetup.Actor {
	return meetup.Actor{ID: u.UserID.String(), Roles: []string{string(u.Role)}}
}

func withAuthUser(ctx context.Context, u *AuthUser) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, authUserKey, u)
}

func authUserFromContext(ctx context.Context) *AuthUser {
	val := ctx.Value(authUserKey)
	if v, ok := val.(*AuthUser); ok {
		return v
	}
	return nil
}

// actorFromContext returns the zero Actor for anonymous requests, which the
// services reject as unauthenticated.
func actorFromContext(ctx context.Context) meetup.Actor {
	if u := authUserFromContext(ctx); u != nil {
		return u.Actor()
	}
	return meetup.Actor{}
}
