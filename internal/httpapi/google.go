// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Palladium Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/palladiumhq/identity/internal/auth"
)

// IdentityProvider abstracts the third-party OAuth provider. The state
// parameter round-trips the reconcile mode through the provider.
type IdentityProvider interface {
	// AuthURL builds the provider's consent-page URL.
	AuthURL(state string) string

	// Exchange redeems the callback code for an identity assertion.
	Exchange(ctx context.Context, code string) (auth.IdentityAssertion, error)
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements IdentityProvider against Google's OAuth2
// endpoints.
type GoogleProvider struct {
	oauth *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, oops.Errorf("google oauth client id, secret and redirect url are required")
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}, nil
}

// AuthURL builds the consent-page URL carrying state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange redeems the code and fetches the user's profile. The provider
// tokens are used once here and discarded; only the assertion survives.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (auth.IdentityAssertion, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return auth.IdentityAssertion{}, oops.Code("OAUTH_EXCHANGE_FAILED").Wrap(err)
	}

	resp, err := p.oauth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return auth.IdentityAssertion{}, oops.Code("OAUTH_USERINFO_FAILED").Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return auth.IdentityAssertion{}, oops.Code("OAUTH_USERINFO_FAILED").
			With("status", resp.StatusCode).
			Errorf("userinfo request rejected")
	}

	var profile struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return auth.IdentityAssertion{}, oops.Code("OAUTH_USERINFO_FAILED").Wrap(err)
	}
	if profile.Email == "" {
		return auth.IdentityAssertion{}, oops.Code("OAUTH_USERINFO_FAILED").Errorf("profile has no email")
	}

	return auth.IdentityAssertion{
		Email:     profile.Email,
		Username:  profile.Name,
		AvatarURL: profile.Picture,
	}, nil
}
