package session

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

// Session owns the authenticated state of the client: the HTTP transport
// with its cookie jar, the persisted credential record and the per-install
// device id. It is constructed once and passed by reference into every
// component; no component reaches for ambient global state.
type Session struct {
	tr       *Transport
	creds    *CredentialStore
	deviceID string

	componentURL string
	ssoURL       string
	gatlingURL   string
}

func New(c *cli.Context, cl *http.Client) (*Session, error) {
	dir := c.String(common.SettingsDirFlag)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	s := &Session{
		tr:           NewTransport(cl, filepath.Join(dir, "cookies")),
		creds:        NewCredentialStore(filepath.Join(dir, "credentials")),
		deviceID:     loadDeviceID(filepath.Join(dir, "device_id")),
		componentURL: strings.TrimSuffix(c.String(common.ComponentAPIFlag), "/"),
		ssoURL:       c.String(common.SSOAPIFlag),
		gatlingURL:   strings.TrimSuffix(c.String(common.GatlingAPIFlag), "/"),
	}
	return s, nil
}

// Transport exposes the cookie-persisting transport for sibling services.
func (s *Session) Transport() *Transport {
	return s.tr
}

func (s *Session) ComponentURL() string {
	return s.componentURL
}

func (s *Session) GatlingURL() string {
	return s.gatlingURL
}

// Role computes the user role from the credential record at call time.
func (s *Session) Role() string {
	return s.creds.Role()
}

// Token returns the gatling session token, or the empty string when the
// session is anonymous.
func (s *Session) Token() string {
	return s.creds.Load().Token
}

// Authenticated reports whether a logged-in account is present.
func (s *Session) Authenticated() bool {
	return s.creds.Load().AccountID != ""
}

// DeviceID is the per-install identifier presented to the DRM check
// endpoint.
func (s *Session) DeviceID() string {
	return s.deviceID
}

// Reset clears the credential record. Idempotent, never fails on a
// missing file.
func (s *Session) Reset() {
	if err := s.creds.Reset(); err != nil {
		log.WithError(err).Warn("failed to reset credentials")
	}
}

// loadDeviceID reads the persisted device id, generating one on first
// use. The id only has to be stable per installation.
func loadDeviceID(path string) string {
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		log.WithError(err).Warn("failed to persist device id")
	}
	return id
}
