package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/webtor-io/lazymap"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/session"
)

// EpisodeInfo is the episode metadata the playback collaborator uses to
// drive "up next" prompts.
type EpisodeInfo struct {
	ID             int64
	Name           string
	Series         string
	Season         int
	Episode        int
	Description    string
	RuntimeSeconds int64
	Aired          string
	Premium        bool
	Fanart         string
}

// Metadata looks up episode metadata and next-episode recommendations.
// Episode records are immutable upstream, so lookups are memoized.
type Metadata struct {
	sess     *session.Session
	episodes *lazymap.LazyMap[*EpisodeInfo]
	dynURL   string
}

func NewMetadata(sess *session.Session, dynamicURL string) *Metadata {
	return &Metadata{
		sess: sess,
		episodes: lazymap.New[*EpisodeInfo](&lazymap.Config{
			Expire:      10 * time.Minute,
			ErrorExpire: 10 * time.Second,
		}),
		dynURL: dynamicURL,
	}
}

type rawEpisode struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	EpisodeName string `json:"episode_name"`
	Series      string `json:"series"`
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
	Description string `json:"description"`
	Runtime     int64  `json:"runtime"`
	Created     string `json:"created"`
	Premium     int    `json:"premium"`
	Media       struct {
		Images []map[string]string `json:"images"`
	} `json:"media"`
}

// EpisodeInfo fetches the metadata record for a video id.
func (m *Metadata) EpisodeInfo(ctx context.Context, videoID int64) (*EpisodeInfo, error) {
	return m.episodes.Get(strconv.FormatInt(videoID, 10), func() (*EpisodeInfo, error) {
		return m.fetchEpisodeInfo(ctx, videoID)
	})
}

func (m *Metadata) fetchEpisodeInfo(ctx context.Context, videoID int64) (*EpisodeInfo, error) {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("id", strconv.FormatInt(videoID, 10))

	data, err := m.sess.Transport().Do(ctx, http.MethodGet, m.dynURL+"/cos/videos/", q, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Videos []rawEpisode `json:"videos"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Videos) == 0 {
		return nil, &common.MalformedUpstreamError{Reason: "episode metadata response carries no videos"}
	}

	raw := resp.Videos[0]
	info := &EpisodeInfo{
		ID:             raw.ID,
		Name:           raw.EpisodeName,
		Series:         raw.Series,
		Season:         raw.Season,
		Episode:        raw.Episode,
		Description:    raw.Description,
		RuntimeSeconds: raw.Runtime,
		Aired:          raw.Created,
		Premium:        raw.Premium == 1,
	}
	if info.Name == "" {
		info.Name = raw.Name
	}
	if len(raw.Media.Images) > 0 {
		info.Fanart = raw.Media.Images[0]["1920x1080"]
	}
	return info, nil
}

// NextEpisodeID asks the recommendation endpoint for the next episode in
// sequence. The second return is false when the sequence ends.
func (m *Metadata) NextEpisodeID(ctx context.Context, videoID int64) (int64, bool, error) {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("id", strconv.FormatInt(videoID, 10))

	data, err := m.sess.Transport().Do(ctx, http.MethodGet, m.sess.GatlingURL()+"/recommend", q, nil, nil)
	if err != nil {
		return 0, false, err
	}

	var resp struct {
		NextInSequence struct {
			NID *int64 `json:"nid"`
		} `json:"next_in_sequence"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, false, &common.MalformedUpstreamError{Reason: "recommendation response is not parseable"}
	}
	if resp.NextInSequence.NID == nil {
		return 0, false, nil
	}
	return *resp.NextInSequence.NID, true, nil
}
