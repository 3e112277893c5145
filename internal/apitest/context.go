package apitest

import (
	"context"

	"github.com/Tuhin-SnapD/pricepilot/internal/models"
)

func withUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxUser{}, u)
}

func userFrom(ctx context.Context) *models.User {
	u, ok := ctx.Value(ctxUser{}).(models.User)
	if !ok {
		return nil
	}

	return &u
}
