package shared

import (
	"context"
	"strconv"
)

type sessionContextKey struct{}

type actorContextKey struct{}

// SystemActor is used when no user is attached to the request.
var SystemActor = Actor{Name: "system"}

// Actor identifies who performs an operation.
type Actor struct {
	ID   int64
	Name string
}

// Anonymous reports whether the actor is not a logged in user.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}

// Label returns the value stored in created_by/posted_by columns.
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID != 0 {
		return "user:" + strconv.FormatInt(a.ID, 10)
	}
	return SystemActor.Name
}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the acting user, falling back to SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return actor
	}
	return SystemActor
}
