package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileJar is an http.CookieJar persisted as a JSON file. The credential
// store and the jar are shared mutable resources; all access goes through
// the mutex so concurrent hosting environments stay safe.
type FileJar struct {
	mu      sync.Mutex
	path    string
	cookies map[string][]*http.Cookie
}

// NewFileJar loads the jar from path. A missing or corrupt file yields an
// empty jar, never an error.
func NewFileJar(path string) *FileJar {
	j := &FileJar{
		path:    path,
		cookies: map[string][]*http.Cookie{},
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return j
	}
	if err := json.Unmarshal(data, &j.cookies); err != nil {
		log.WithError(err).Warn("discarding corrupt cookie file")
		j.cookies = map[string][]*http.Cookie{}
	}
	return j
}

func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = u.Hostname()
		}
		domain = strings.TrimPrefix(domain, ".")
		stored := j.cookies[domain]
		replaced := false
		for i, sc := range stored {
			if sc.Name == c.Name && sc.Path == c.Path {
				stored[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			stored = append(stored, c)
		}
		j.cookies[domain] = stored
	}
}

func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	host := u.Hostname()
	var out []*http.Cookie
	for domain, stored := range j.cookies {
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		for _, c := range stored {
			if c.MaxAge < 0 {
				continue
			}
			if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// Save writes the jar back to disk. Called after every request so session
// cookies survive across processes.
func (j *FileJar) Save() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := json.Marshal(j.cookies)
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0600)
}
