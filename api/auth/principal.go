package auth

import "context"

// Principal is the identity bound to a request once its token checks out.
// It is derived from a stored user but is not the stored user.
type Principal struct {
	UserID   uint
	Username string
}

// IsAnonymous reports whether p carries no identity.
func (p Principal) IsAnonymous() bool {
	return p.UserID == 0
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.IsAnonymous() {
		return Principal{}, false
	}
	return p, true
}
