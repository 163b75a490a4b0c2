package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/config"
)

const (
	userAgent    = "upload-gate"
	maxBodyBytes = 1 << 20
)

// Provider authenticates GitHub users and checks membership of one
// organization.
type Provider struct {
	org          string
	apiURL       string
	oauth2Config oauth2.Config
	client       *http.Client
}

func NewProvider(cfg config.GitHubConfig) *Provider {
	endpoint := githuboauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Provider{
		org:    cfg.Org,
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		client: &http.Client{
			Timeout: cfg.Timeout,
			// A redirect from the membership endpoint means the caller may not
			// see the member list; it counts as "not a member".
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *Provider) Name() string {
	return "github"
}

func (p *Provider) AuthCodeURL(state, redirectURL string) string {
	cfg := p.oauth2Config
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state)
}

func (p *Provider) Exchange(ctx context.Context, code, redirectURL string) (string, error) {
	cfg := p.oauth2Config
	cfg.RedirectURL = redirectURL

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode != "" {
			return "", &auth.ProviderError{Code: re.ErrorCode, Description: re.ErrorDescription}
		}
		return "", fmt.Errorf("%w: code exchange: %v", auth.ErrProtocol, err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: missing access_token", auth.ErrProtocol)
	}

	return token.AccessToken, nil
}

// Resolve returns nil when GitHub does not accept the token. Membership is
// granted only on a 2xx answer; 404 is GitHub's reply both for non-members
// and for private memberships, and both are denied.
func (p *Provider) Resolve(ctx context.Context, accessToken string) (*auth.Identity, error) {
	status, body, err := p.get(ctx, p.apiURL+"/user", accessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	user := gjson.ParseBytes(body)
	login := user.Get("login").String()
	if login == "" {
		return nil, nil
	}

	identity := &auth.Identity{
		Login:     login,
		AvatarURL: user.Get("avatar_url").String(),
	}

	membershipURL := p.apiURL + "/orgs/" + url.PathEscape(p.org) + "/members/" + url.PathEscape(login)
	status, _, err = p.get(ctx, membershipURL, accessToken)
	identity.IsMember = err == nil && status >= 200 && status < 300

	return identity, nil
}

func (p *Provider) get(ctx context.Context, rawURL, accessToken string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}
