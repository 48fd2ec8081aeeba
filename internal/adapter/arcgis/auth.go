package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenLifetime is the expiration requested from generateToken, in minutes.
const tokenLifetime = 60

type generateTokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"` // unix milliseconds
}

// tokenSource returns the client's token source, creating it on first use.
// App credentials (client id/secret) take precedence over a named user.
// Tokens outlive the context of the call that first requested them; token
// requests are bounded by the client timeout instead.
func (c *Client) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.tsMu.Lock()
	defer c.tsMu.Unlock()
	if c.ts != nil {
		return c.ts, nil
	}

	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, c.httpClient)

	switch {
	case c.creds.clientID != "":
		cc := &clientcredentials.Config{
			ClientID:       c.creds.clientID,
			ClientSecret:   c.creds.clientSecret,
			TokenURL:       c.portalURL + "/sharing/rest/oauth2/token",
			AuthStyle:      oauth2.AuthStyleInParams,
			EndpointParams: url.Values{"f": {"json"}},
		}
		c.ts = cc.TokenSource(ctx)
	case c.creds.username != "":
		c.ts = oauth2.ReuseTokenSource(nil, &userTokenSource{ctx: ctx, client: c})
	default:
		return nil, fmt.Errorf("%w: no credentials configured", ErrAuth)
	}
	return c.ts, nil
}

// token obtains an access token, classifying every failure as ErrAuth.
func (c *Client) token(ctx context.Context) (string, error) {
	ts, err := c.tokenSource(ctx)
	if err != nil {
		return "", err
	}
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return tok.AccessToken, nil
}

// userTokenSource exchanges a named user's password for a token via generateToken.
type userTokenSource struct {
	ctx    context.Context
	client *Client
}

func (s *userTokenSource) Token() (*oauth2.Token, error) {
	c := s.client
	form := url.Values{
		"username":   {c.creds.username},
		"password":   {c.creds.password},
		"client":     {"referer"},
		"referer":    {c.portalURL},
		"expiration": {fmt.Sprint(tokenLifetime)},
		"f":          {"json"},
	}

	var resp generateTokenResponse
	if err := c.call(s.ctx, http.MethodPost, c.portalURL+"/sharing/rest/generateToken", form, &resp); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("generate token: empty token in response")
	}

	tok := &oauth2.Token{AccessToken: resp.Token, TokenType: "Bearer"}
	if resp.Expires > 0 {
		tok.Expiry = time.UnixMilli(resp.Expires)
	}
	return tok, nil
}
