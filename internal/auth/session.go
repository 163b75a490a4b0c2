package auth

// Identity is the result of one verification against the provider. It is
// never reused across requests.
type Identity struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	IsMember  bool   `json:"-"`
}

// Session is the per-browser state written by the gateway. Identity is only
// set when AccessToken was verified as belonging to an organization member
// on the request that set it.
type Session struct {
	AccessToken string    `json:"access_token,omitempty"`
	Identity    *Identity `json:"identity,omitempty"`
}

// ClearToken drops the access token together with any identity derived from it.
func (s *Session) ClearToken() {
	s.AccessToken = ""
	s.Identity = nil
}

func (s Session) IsEmpty() bool {
	return s.AccessToken == "" && s.Identity == nil
}

// Authenticated reports whether the session holds a verified member identity.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.Identity != nil
}
