package session

import (
	"encoding/json"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	RoleAnonymous     = "anonymous"
	RoleAuthenticated = "authenticated"
)

// Record is the persisted credential record. The service returns more
// fields than these; the store keeps the original payload verbatim and
// only these are interpreted.
type Record struct {
	AccountID FlexID `json:"accountId"`
	Token     string `json:"token"`
	Service   struct {
		RuutuRole *string `json:"ruutuRole"`
	} `json:"service"`
}

// FlexID tolerates the service sending ids as either strings or numbers.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	// null or an unexpected shape means no account id
	*f = ""
	return nil
}

// CredentialStore holds the single credential record of an installation
// as a JSON file. Reads never fail: a missing or corrupt file is an empty
// record, which higher layers treat as an anonymous session.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

func (s *CredentialStore) Load() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if writeErr := os.WriteFile(s.path, []byte("{}"), 0600); writeErr != nil {
			log.WithError(writeErr).Warn("failed to initialize credential file")
		}
		return &Record{}
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		log.WithError(err).Warn("treating corrupt credential file as anonymous")
		return &Record{}
	}
	return &r
}

// SaveRaw persists the identity payload exactly as the service returned
// it, so server-defined fields survive round-trips untouched.
func (s *CredentialStore) SaveRaw(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path, data, 0600)
}

// Reset overwrites the record with an empty value. Idempotent, never
// surfaces a missing file.
func (s *CredentialStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path, []byte("{}"), 0600)
}

// Role derives the user role at call time; it is never cached. A record
// without accountId is anonymous, one with a null ruutuRole is a plain
// authenticated user, otherwise the subscription tier string itself.
func (s *CredentialStore) Role() string {
	r := s.Load()
	if r.AccountID == "" {
		return RoleAnonymous
	}
	if r.Service.RuutuRole == nil || *r.Service.RuutuRole == "" {
		return RoleAuthenticated
	}
	return *r.Service.RuutuRole
}
