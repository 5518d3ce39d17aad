package services

import "context"

// UserIDFromContext returns the authenticated user id placed in the
// request context by the auth middleware.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value("userID").(int)
	return id, ok
}
