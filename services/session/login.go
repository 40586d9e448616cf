package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

const clientName = "ruutu-prod"

type ssoBody struct {
	ClientID       string `json:"client_id"`
	RedirectURI    string `json:"redirect_uri"`
	State          string `json:"state"`
	QueryString    string `json:"queryString"`
	Service        string `json:"service"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	FailedAttempts int    `json:"failedAttempts"`
}

type ssoOperation struct {
	Resource  string   `json:"resource"`
	Operation string   `json:"operation"`
	Params    struct{} `json:"params"`
	Body      ssoBody  `json:"body"`
}

type ssoRequest struct {
	Requests map[string]ssoOperation `json:"requests"`
	Context  struct {
		CSRF string `json:"_csrf"`
	} `json:"context"`
}

// Login runs the full sign-in protocol: bootstrap page, SSO submit, OAuth
// code exchange, gatling session creation and identity fetch. On success
// the identity payload is persisted as the credential record. Server-side
// rejections surface as *common.ApiError with the verbatim message.
func (s *Session) Login(ctx context.Context, username, password string) error {
	q := url.Values{}
	q.Set("widget", "true")
	q.Set("client", clientName)
	q.Set("ref_url", "https://www.ruutu.fi/")
	q.Set("region", "fi-FI")
	q.Set("iframe", "true")

	page, err := s.tr.Do(ctx, http.MethodGet, s.componentURL+"/auth/init/login", q, nil, nil)
	if err != nil {
		return err
	}

	bc, err := ExtractBootstrapContext(string(page))
	if err != nil {
		return err
	}

	code, state, err := s.submitSSO(ctx, bc, username, password)
	if err != nil {
		return err
	}

	accessToken, err := s.exchangeTokens(ctx, code, state)
	if err != nil {
		return err
	}

	gatlingToken, err := s.createSession(ctx, accessToken)
	if err != nil {
		return err
	}

	identity, err := s.identify(ctx, gatlingToken)
	if err != nil {
		return err
	}

	if err := s.creds.SaveRaw(identity); err != nil {
		return errors.Wrap(err, "save credentials")
	}

	log.WithField("role", s.Role()).Info("login successful")

	return nil
}

// submitSSO posts credentials to the single-sign-on endpoint and returns
// the OAuth code and state carried in the redirect URI.
func (s *Session) submitSSO(ctx context.Context, bc *BootstrapContext, username, password string) (string, string, error) {
	// The query string is assembled verbatim the way the web login form
	// does it; the SSO endpoint echoes it into the redirect.
	queryString := "?cancel_uri=" + bc.CancelURI +
		"&client_id=" + bc.ClientID +
		"&facebookAuth=true&googleAuth=true&hide_logo=false&iframe=true" +
		"&redirect_uri=" + bc.RedirectURI +
		"&service=" + bc.Service +
		"&silent=false&state=" + bc.State +
		"&style=ruutu2&email=" + username

	payload := ssoRequest{
		Requests: map[string]ssoOperation{
			"g0": {
				Resource:  "loginService",
				Operation: "create",
				Body: ssoBody{
					ClientID:    bc.ClientID,
					RedirectURI: bc.RedirectURI,
					State:       bc.State,
					QueryString: queryString,
					Service:     bc.Service,
					Username:    username,
					Password:    password,
				},
			},
		},
	}
	payload.Context.CSRF = bc.CSRF

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	q := url.Values{}
	q.Set("_csrf", bc.CSRF)

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	data, err := s.tr.Do(ctx, http.MethodPost, s.ssoURL, q, strings.NewReader(string(body)), header)
	if err != nil {
		return "", "", err
	}

	var resp struct {
		G0 struct {
			Data struct {
				Message     string `json:"message"`
				RedirectURI string `json:"redirectUri"`
			} `json:"data"`
		} `json:"g0"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "", &common.MalformedUpstreamError{Reason: "sso response is not parseable"}
	}
	if resp.G0.Data.Message != "Login successful" {
		return "", "", &common.ApiError{Message: resp.G0.Data.Message}
	}

	redirect, err := url.Parse(resp.G0.Data.RedirectURI)
	if err != nil {
		return "", "", &common.MalformedUpstreamError{Reason: "sso redirect uri is not parseable"}
	}
	code := redirect.Query().Get("code")
	state := redirect.Query().Get("state")
	if code == "" || state == "" {
		return "", "", &common.MalformedUpstreamError{Reason: "sso redirect uri is missing code or state"}
	}
	return code, state, nil
}

func (s *Session) exchangeTokens(ctx context.Context, code, state string) (string, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("state", state)
	q.Set("client", clientName)

	data, err := s.tr.Do(ctx, http.MethodGet, s.componentURL+"/auth/get-tokens", q, nil, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.Tokens.AccessToken == "" {
		return "", &common.MalformedUpstreamError{Reason: "token exchange returned no access token"}
	}
	return resp.Tokens.AccessToken, nil
}

func (s *Session) createSession(ctx context.Context, accessToken string) (string, error) {
	form := url.Values{}
	form.Set("access_token", accessToken)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	data, err := s.tr.Do(ctx, http.MethodPost, s.gatlingURL+"/auth/create-session-by-access-token", nil, strings.NewReader(form.Encode()), header)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || resp.Token == "" {
		return "", &common.MalformedUpstreamError{Reason: "session creation returned no token"}
	}
	return resp.Token, nil
}

func (s *Session) identify(ctx context.Context, gatlingToken string) ([]byte, error) {
	q := url.Values{}
	q.Set("gatling_token", gatlingToken)
	q.Set("service", "ruutu")

	return s.tr.Do(ctx, http.MethodGet, s.gatlingURL+"/auth/identify/v2", q, nil, nil)
}
