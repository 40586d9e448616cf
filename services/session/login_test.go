package session

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

func testContext(t *testing.T, serverURL string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = common.RegisterFlags(nil)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String(common.SettingsDirFlag, "", "")
	fs.String(common.ComponentAPIFlag, "", "")
	fs.String(common.SSOAPIFlag, "", "")
	fs.String(common.GatlingAPIFlag, "", "")
	fs.String(common.DynamicAPIFlag, "", "")
	_ = fs.Set(common.SettingsDirFlag, t.TempDir())
	_ = fs.Set(common.ComponentAPIFlag, serverURL)
	_ = fs.Set(common.SSOAPIFlag, serverURL+"/sso/api")
	_ = fs.Set(common.GatlingAPIFlag, serverURL)
	_ = fs.Set(common.DynamicAPIFlag, serverURL)
	return cli.NewContext(app, fs, nil)
}

func loginStub(t *testing.T, ssoMessage string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/init/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bootstrapPage(bootstrapBlob)))
	})
	mux.HandleFunc("/sso/api", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("_csrf") != "csrf123" {
			t.Errorf("sso call is missing the csrf token")
		}
		var req ssoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("sso payload is not parseable: %v", err)
		}
		if req.Requests["g0"].Body.Username != "user@example.com" {
			t.Errorf("unexpected sso username %q", req.Requests["g0"].Body.Username)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"g0": map[string]any{
				"data": map[string]any{
					"message":     ssoMessage,
					"redirectUri": "https://redirect.example/cb?code=code1&state=state1",
				},
			},
		})
	})
	mux.HandleFunc("/auth/get-tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "code1" || r.URL.Query().Get("state") != "state1" {
			t.Errorf("token exchange got wrong code/state: %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"tokens":{"access_token":"at1"}}`))
	})
	mux.HandleFunc("/auth/create-session-by-access-token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("access_token") != "at1" {
			t.Errorf("session creation got wrong access token")
		}
		_, _ = w.Write([]byte(`{"token":"gatling1"}`))
	})
	mux.HandleFunc("/auth/identify/v2", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gatling_token") != "gatling1" {
			t.Errorf("identity fetch got wrong gatling token")
		}
		_, _ = w.Write([]byte(`{"accountId":"acc1","token":"gatling1","service":{"ruutuRole":null}}`))
	})
	return httptest.NewServer(mux)
}

func TestLoginEndToEnd(t *testing.T) {
	srv := loginStub(t, "Login successful")
	defer srv.Close()

	s, err := New(testContext(t, srv.URL), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !s.Authenticated() {
		t.Error("expected authenticated session after login")
	}
	if s.Token() != "gatling1" {
		t.Errorf("expected persisted gatling token, got %q", s.Token())
	}
	if role := s.Role(); role != RoleAuthenticated {
		t.Errorf("expected authenticated role, got %q", role)
	}
}

func TestLoginFailureSurfacesServerMessage(t *testing.T) {
	srv := loginStub(t, "Invalid username or password")
	defer srv.Close()

	s, err := New(testContext(t, srv.URL), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Login(context.Background(), "user@example.com", "wrong")
	var apiErr *common.ApiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ApiError, got %v", err)
	}
	if apiErr.Message != "Invalid username or password" {
		t.Errorf("expected verbatim server message, got %q", apiErr.Message)
	}
	if s.Authenticated() {
		t.Error("failed login must not leave credentials behind")
	}
}

func TestResetAfterLogin(t *testing.T) {
	srv := loginStub(t, "Login successful")
	defer srv.Close()

	s, err := New(testContext(t, srv.URL), srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if role := s.Role(); role != RoleAnonymous {
		t.Errorf("expected anonymous after reset, got %q", role)
	}
}
