package auth

import "context"

// Outcome is the result of running the gate over one request.
type Outcome int

const (
	OutcomeAnonymous Outcome = iota
	OutcomeAuthenticated
	OutcomeBadLogin
	OutcomeNotMember
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnonymous:
		return "anonymous"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeBadLogin:
		return "bad_login"
	case OutcomeNotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// Denied reports whether the request must stop at the login page.
func (o Outcome) Denied() bool {
	return o == OutcomeBadLogin || o == OutcomeNotMember
}

// Verify recomputes the session for one gated request. Any identity cached by
// an earlier request is discarded first; the token is re-checked against the
// provider every time.
func Verify(ctx context.Context, resolver Resolver, in Session) (Session, Outcome, error) {
	out := Session{AccessToken: in.AccessToken}

	if out.AccessToken == "" {
		return out, OutcomeAnonymous, nil
	}

	identity, err := resolver.Resolve(ctx, out.AccessToken)
	if err != nil || identity == nil || identity.Login == "" {
		out.ClearToken()
		return out, OutcomeBadLogin, err
	}

	if !identity.IsMember {
		out.ClearToken()
		return out, OutcomeNotMember, nil
	}

	out.Identity = &Identity{
		Login:     identity.Login,
		AvatarURL: identity.AvatarURL,
		IsMember:  true,
	}
	return out, OutcomeAuthenticated, nil
}
