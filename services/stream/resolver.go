package stream

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
)

// apiKey authorizes the media/metadata endpoints. It is the fixed key the
// public web player ships with, not a user secret.
const apiKey = "cb60991daf94becc1a88b17b16d648b4"

// Resolver turns a video id into a playable stream descriptor, including
// the DRM license handshake for protected on-demand content.
type Resolver struct {
	sess *session.Session
}

func NewResolver(sess *session.Session) *Resolver {
	return &Resolver{
		sess: sess,
	}
}

// Resolve fetches the player-data manifest for the id and branches on
// live/DRM/plain on-demand. requiresSubscription gates the call: a
// sticker-gated item on a non-subscriber session fails fast before any
// network I/O, instead of letting the server reject the license request.
func (r *Resolver) Resolve(ctx context.Context, videoID int64, kind Kind, requiresSubscription bool) (*Descriptor, error) {
	if requiresSubscription {
		switch r.sess.Role() {
		case session.RoleAnonymous, session.RoleAuthenticated:
			return nil, common.ErrNotAuthenticated
		}
	}

	q := url.Values{}
	q.Set("id", strconv.FormatInt(videoID, 10))
	q.Set("v", "2")

	data, err := r.sess.Transport().Do(ctx, http.MethodGet, r.sess.GatlingURL()+"/media-xml-cache", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var manifest playerData
	if err := xml.Unmarshal(data, &manifest); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "player data manifest is not parseable"}
	}

	if kind == Live {
		return r.resolveLive(ctx, &manifest)
	}
	if manifest.Clip.DRM != nil && manifest.Clip.DRM.CheckURL != "" {
		return r.resolveDRM(ctx, videoID, &manifest)
	}
	return r.resolvePlain(ctx, &manifest)
}

// resolveLive requests a signed playback URL. Live streams use signed
// URLs, not DRM.
func (r *Resolver) resolveLive(ctx context.Context, manifest *playerData) (*Descriptor, error) {
	q := url.Values{}
	q.Set("stream", manifest.Clip.AppleMediaFiles.AppleMediaFile)
	// The endpoint requires a timestamp parameter but does not validate
	// its value; this is the one the web player sends.
	q.Set("timestamp", "1546978227167")
	q.Set("gatling_token", r.sess.Token())

	signed, err := r.sess.Transport().Do(ctx, http.MethodGet, r.sess.GatlingURL()+"/auth/access/v2", q, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		VideoURL: strings.TrimSpace(string(signed)),
	}, nil
}

// resolveDRM runs the two-stage license handshake: the DRM check endpoint
// yields a play token and a media locator, whose manifest in turn carries
// the license URL.
func (r *Resolver) resolveDRM(ctx context.Context, videoID int64, manifest *playerData) (*Descriptor, error) {
	q := url.Values{}
	q.Set("device_type", "WEB")
	q.Set("nid", strconv.FormatInt(videoID, 10))
	q.Set("asset_id", manifest.Clip.DRM.AssetID)
	q.Set("drm", "CENC")
	q.Set("format", "DASH")
	q.Set("anonymous", "false")
	q.Set("account_id", "true")
	q.Set("device_id", r.sess.DeviceID())
	q.Set("api_key", apiKey)
	// Anonymous DRM checks are permitted; the token personalizes the
	// grant for subscription content.
	if r.sess.Authenticated() {
		q.Set("gatling_token", r.sess.Token())
	}

	data, err := r.sess.Transport().Do(ctx, http.MethodGet, manifest.Clip.DRM.CheckURL, q, nil, nil)
	if err != nil {
		return nil, err
	}
	var key drmKeyResponse
	if err := json.Unmarshal(data, &key); err != nil || key.EmpDrmKey.MediaLocator == "" {
		return nil, &common.MalformedUpstreamError{Reason: "drm check returned no media locator"}
	}

	d := &Descriptor{
		DRMProtected: true,
		DRMToken:     url.QueryEscape(key.EmpDrmKey.PlayToken),
		// The locator comes back scheme-less.
		VideoURL: "https:" + key.EmpDrmKey.MediaLocator,
	}

	mpdData, err := r.sess.Transport().Do(ctx, http.MethodGet, d.VideoURL, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var playlist mpd
	if err := xml.Unmarshal(mpdData, &playlist); err != nil {
		return nil, &common.MalformedUpstreamError{Reason: "drm playlist is not parseable"}
	}

	if playlist.Period.ID == "P0" {
		d.LicenseURL = licenseURL(&playlist)
	} else {
		// Only P0 periods are known to carry license metadata. Leaving
		// LicenseURL unset here mirrors upstream coverage; do not guess.
		log.WithField("period", playlist.Period.ID).Warn("drm playlist period carries no known license metadata")
	}

	return d, nil
}

func licenseURL(playlist *mpd) string {
	if len(playlist.Period.AdaptationSets) == 0 {
		return ""
	}
	for _, cp := range playlist.Period.AdaptationSets[0].ContentProtections {
		if cp.Laurl.LicenseURL != "" {
			return cp.Laurl.LicenseURL
		}
	}
	return ""
}

// resolvePlain is the no-DRM on-demand path; the access grant needs no
// session token.
func (r *Resolver) resolvePlain(ctx context.Context, manifest *playerData) (*Descriptor, error) {
	q := url.Values{}
	q.Set("stream", manifest.Clip.AppleMediaFiles.AppleMediaFile)

	grant, err := r.sess.Transport().Do(ctx, http.MethodGet, r.sess.GatlingURL()+"/auth/access/v2", q, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		VideoURL: strings.TrimSpace(string(grant)),
	}, nil
}
