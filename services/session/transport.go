package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ruutu-tools/ruutu-client/services/common"
)

// Transport wraps an *http.Client with a file-persisted cookie jar and
// uniform error detection. The jar is saved after every request, success
// or failure, so a concurrent process picks up session continuity.
type Transport struct {
	cl  *http.Client
	jar *FileJar
}

func NewTransport(cl *http.Client, cookiePath string) *Transport {
	jar := NewFileJar(cookiePath)
	// Shallow copy so the shared client keeps its own jar.
	clc := *cl
	clc.Jar = jar
	return &Transport{
		cl:  &clc,
		jar: jar,
	}
}

// Do performs a single blocking round-trip and returns the raw body.
// Connectivity failures surface as *common.TransportError, structured
// service failures as *common.ApiError. There is no retry.
func (t *Transport) Do(ctx context.Context, method, rawURL string, q url.Values, body io.Reader, header http.Header) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse url %s", rawURL)
	}
	// Grid query URLs arrive from the API with their own query string;
	// merge instead of appending a second "?". Caller values win.
	if len(q) > 0 {
		merged := u.Query()
		for k, vs := range q {
			merged[k] = vs
		}
		u.RawQuery = merged.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	log.WithField("method", method).WithField("url", rawURL).Debug("request")

	resp, err := t.cl.Do(req)
	if saveErr := t.jar.Save(); saveErr != nil {
		log.WithError(saveErr).Warn("failed to save cookie jar")
	}
	if err != nil {
		return nil, &common.TransportError{Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &common.TransportError{Err: err}
	}

	if err := apiError(data); err != nil {
		return nil, err
	}

	return data, nil
}

// apiError inspects a response body for the service's error envelope: a
// JSON object with a "message" field, carrying either the message text
// directly or a nested {"message","errorKey"} object. Non-JSON bodies and
// bodies without that key pass through unexamined; many endpoints (HTML,
// XML, m3u8) never return the envelope.
func apiError(body []byte) error {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil
	}
	raw, ok := outer["message"]
	if !ok {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return &common.ApiError{Message: text}
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
		return &common.ApiError{Message: nested.Message}
	}

	return nil
}
