package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf holds the OAuth2 client credentials of a price feed. An empty AuthURL
// disables authentication.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether a token endpoint is configured.
func (c Conf) Enabled() bool { return c.AuthURL != "" }

func (c *Conf) oauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}
