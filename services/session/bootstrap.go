package session

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

// BootstrapContext is the OAuth context embedded in the login page.
type BootstrapContext struct {
	CSRF        string
	ClientID    string
	CancelURI   string
	RedirectURI string
	State       string
	Service     string
}

var scriptRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)

var unicodeEscapeRe = regexp.MustCompile(`\\u[0-9a-fA-F]{4}`)

// The login page assigns its state to window.App inside a script tag that
// is not valid JSON as-is: two minified function literals have to be cut
// out before parsing. These are the literals as they appear once all
// whitespace has been removed.
const (
	storeConnectorLiteral = `functionStoreConnector(props,context){React.Component.apply(this,arguments);this.state=this.getStateFromStores();this._onStoreChange=null;this._isMounted=false;}`
	tryCatchLiteral       = `function(t,a,n){try{returne(t,a,n)}catch(e){returnn(e)}}`
)

// bootstrapScriptIndex is the position of the window.App script in the
// observed page template. Template-coupled and brittle; when the upstream
// page changes, this function is the single place to fix.
const bootstrapScriptIndex = 5

// ExtractBootstrapContext digs the CSRF token and OAuth parameters out of
// the login bootstrap page. Any shape mismatch is a MalformedUpstreamError,
// never a panic.
func ExtractBootstrapContext(htmlBody string) (*BootstrapContext, error) {
	scripts := scriptRe.FindAllStringSubmatch(htmlBody, -1)
	if len(scripts) <= bootstrapScriptIndex {
		return nil, &common.MalformedUpstreamError{Reason: "login page has too few script tags"}
	}

	data := strings.TrimSpace(scripts[bootstrapScriptIndex][1])
	data = unescapeUnicode(data)
	data = strings.Replace(data, "window.App=", "", 1)
	data = stripWhitespace(data)
	data = strings.ReplaceAll(data, storeConnectorLiteral, `""`)
	data = strings.ReplaceAll(data, tryCatchLiteral, `""`)
	data = strings.TrimSuffix(data, ";")

	var app struct {
		Context struct {
			Plugins struct {
				FetchrPlugin struct {
					XhrContext struct {
						CSRF string `json:"_csrf"`
					} `json:"xhrContext"`
				} `json:"FetchrPlugin"`
			} `json:"plugins"`
			Dispatcher struct {
				Stores struct {
					RouteStore struct {
						CurrentNavigate struct {
							Route struct {
								Query struct {
									ClientID    string `json:"client_id"`
									CancelURI   string `json:"cancel_uri"`
									RedirectURI string `json:"redirect_uri"`
									State       string `json:"state"`
									Service     string `json:"service"`
								} `json:"query"`
							} `json:"route"`
						} `json:"currentNavigate"`
					} `json:"RouteStore"`
				} `json:"stores"`
			} `json:"dispatcher"`
		} `json:"context"`
	}
	if err := json.Unmarshal([]byte(data), &app); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "login page bootstrap blob is not parseable"}
	}

	bc := &BootstrapContext{
		CSRF:        app.Context.Plugins.FetchrPlugin.XhrContext.CSRF,
		ClientID:    app.Context.Dispatcher.Stores.RouteStore.CurrentNavigate.Route.Query.ClientID,
		CancelURI:   app.Context.Dispatcher.Stores.RouteStore.CurrentNavigate.Route.Query.CancelURI,
		RedirectURI: app.Context.Dispatcher.Stores.RouteStore.CurrentNavigate.Route.Query.RedirectURI,
		State:       app.Context.Dispatcher.Stores.RouteStore.CurrentNavigate.Route.Query.State,
		Service:     app.Context.Dispatcher.Stores.RouteStore.CurrentNavigate.Route.Query.Service,
	}
	if bc.CSRF == "" || bc.ClientID == "" || bc.RedirectURI == "" {
		return nil, &common.MalformedUpstreamError{Reason: "login page bootstrap blob is missing oauth context"}
	}
	return bc, nil
}

func unescapeUnicode(s string) string {
	return unicodeEscapeRe.ReplaceAllStringFunc(s, func(m string) string {
		r, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(r))
	})
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
