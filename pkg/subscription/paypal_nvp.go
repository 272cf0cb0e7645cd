package subscription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Endpoints of PayPal's classic NVP API. The API answers url-encoded
// key/value lists; there is no maintained Go SDK for it, so the provider
// speaks it directly over net/http.
const (
	nvpLiveEndpoint    = "https://api-3t.paypal.com/nvp"
	nvpSandboxEndpoint = "https://api-3t.sandbox.paypal.com/nvp"

	nvpLiveRedirectBase    = "https://www.paypal.com/cgi-bin/webscr"
	nvpSandboxRedirectBase = "https://www.sandbox.paypal.com/cgi-bin/webscr"

	ipnLiveEndpoint    = "https://ipnpb.paypal.com/cgi-bin/webscr"
	ipnSandboxEndpoint = "https://ipnpb.sandbox.paypal.com/cgi-bin/webscr"

	nvpVersion = "204.0"
)

// nvpClient performs signed NVP calls and IPN echo-back verification.
type nvpClient struct {
	endpoint     string
	ipnEndpoint  string
	redirectBase string

	username  string
	password  string
	signature string

	httpc *http.Client
}

// call executes one NVP method and parses the response field list. Only the
// transport layer can fail here; API-level failures come back as ACK fields
// the caller inspects.
func (c *nvpClient) call(ctx context.Context, method string, fields map[string]string) (ProviderResponse, error) {
	form := url.Values{}
	form.Set("METHOD", method)
	form.Set("VERSION", nvpVersion)
	form.Set("USER", c.username)
	form.Set("PWD", c.password)
	form.Set("SIGNATURE", c.signature)
	for k, v := range fields {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal %s call: %w", method, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("paypal %s response: %w", method, err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paypal %s responded %d: %s", method, res.StatusCode, body)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("paypal %s response parse: %w", method, err)
	}
	resp := make(ProviderResponse, len(values))
	for k := range values {
		resp[k] = values.Get(k)
	}
	return resp, nil
}

// verifyIPN echoes the raw notification back to PayPal with
// cmd=_notify-validate prepended. PayPal answers VERIFIED only when it really
// sent the payload; anything else means forged or stale.
func (c *nvpClient) verifyIPN(ctx context.Context, payload []byte) (string, error) {
	body := "cmd=_notify-validate&" + string(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ipnEndpoint, strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal IPN verification: %w", err)
	}
	defer res.Body.Close()

	verdict, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("paypal IPN verification response: %w", err)
	}
	return strings.TrimSpace(string(verdict)), nil
}

// redirectURL builds the interactive checkout URL for a SetExpressCheckout
// token.
func (c *nvpClient) redirectURL(token string) string {
	return c.redirectBase + "?cmd=_express-checkout&token=" + url.QueryEscape(token)
}
