package web

import "context"

type contextKey int

const (
	userKey contextKey = iota
	requestIDKey
)

type User struct {
	Name          string
	Authenticated bool
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func CurrentUser(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	return user, ok
}

// Identity is the name of the authenticated user, empty when anonymous.
func Identity(ctx context.Context) string {
	user, ok := CurrentUser(ctx)
	if !ok || !user.Authenticated {
		return ""
	}
	return user.Name
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
