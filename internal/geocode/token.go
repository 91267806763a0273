package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenSkew refreshes the token a little before the provider's expiry so
// in-flight requests never carry a token about to die.
const tokenSkew = 60 * time.Second

func isDomesticCountry(country string) bool {
	_, ok := domesticCountries[strings.ToLower(strings.TrimSpace(country))]
	return ok
}

// accessToken returns the cached bearer token, refreshing it when the
// expiry is near. Concurrent resolutions share one in-flight refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew)) {
		token := c.token
		c.tokenMu.Unlock()
		return token, nil
	}
	c.tokenMu.Unlock()

	v, err, _ := c.tokenGroup.Do("token", func() (any, error) {
		// Re-check under the group: the first caller may have already
		// refreshed while this one waited to enter.
		c.tokenMu.Lock()
		if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSkew)) {
			token := c.token
			c.tokenMu.Unlock()
			return token, nil
		}
		c.tokenMu.Unlock()

		token, expiry, err := c.fetchToken(ctx)
		if err != nil {
			return "", err
		}

		c.tokenMu.Lock()
		c.token = token
		c.tokenExpiry = expiry
		c.tokenMu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: build token request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: token request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", time.Time{}, fmt.Errorf("%w: token status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: decode token: %v", ErrUnavailable, err)
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty access token", ErrUnavailable)
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return parsed.AccessToken, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}
