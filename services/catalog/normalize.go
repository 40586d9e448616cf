package catalog

import (
	"context"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ruutu-tools/ruutu-client/services/common"
	"github.com/ruutu-tools/ruutu-client/services/storage"
)

const subscriptionSticker = "entertainment"

const subscriptionSuffix = " [RUUTU+]"

// upcomingMarker is the label prepended to the air date on not-yet
// available items. Localization is the host's concern; this is the
// service's own wording.
const upcomingMarker = "Tulossa"

var (
	episodePrefixRe = regexp.MustCompile(`^\d+ - `)
	parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)`)
	// Season and episode numbers only exist as free text in the
	// description, in the fixed bilingual shape "Kausi N ... Jakso M"
	// (or a newline instead of the word Jakso).
	seasonEpisodeRe = regexp.MustCompile(`Kausi\s(\d+).*(?:Jakso|\n)\s(\d+)`)
)

// ListContext carries the per-listing inputs the normalizer threads into
// every item: the session role plus the pre-fetched history and favorites
// collections of an authenticated user, and the series-level metadata
// stamped onto episode pages.
type ListContext struct {
	Role          string
	Authenticated bool
	History       []storage.HistoryRecord
	Favorites     storage.FavoriteSet
	ShowTitle     string
	Genres        []string
}

// Normalizer maps raw grid items onto the ContentNode union.
type Normalizer struct {
	api *Api
	// plusSticker mirrors the subscription-sticker display setting:
	// when unset the "[RUUTU+]" suffix lands in the list title.
	plusSticker bool
}

func NewNormalizer(api *Api, plusSticker bool) *Normalizer {
	return &Normalizer{
		api:         api,
		plusSticker: plusSticker,
	}
}

// Item normalizes one raw grid item. Unrecognized shapes yield (nil, nil)
// and a log line, never an error; errors are reserved for failed lookups
// so the caller can skip the item without blanking the page.
func (n *Normalizer) Item(ctx context.Context, item rawItem, lc *ListContext) (ContentNode, error) {
	if item.Link == nil {
		if item.Upcoming {
			return n.upcomingItem(item, lc), nil
		}
		log.WithField("title", item.Title).Warn("dropping item without link")
		return nil, nil
	}

	switch item.Link.Target.Type {
	case "video_id":
		return n.episodeItem(item, lc), nil
	case "series_id":
		return n.seriesItem(item, lc), nil
	case "channel_id":
		return n.channelItem(ctx, item, lc)
	case "stream_id":
		return n.streamItem(ctx, item, lc)
	default:
		// The service keeps introducing target types; tolerate them.
		log.WithField("type", item.Link.Target.Type).Warn("dropping item with unhandled link target type")
		return nil, nil
	}
}

func (n *Normalizer) episodeItem(item rawItem, lc *ListContext) ContentNode {
	title := CleanTitle(item.Title)

	m := MediaItem{
		Kind:                 KindEpisode,
		ID:                   item.ID,
		VideoID:              item.Link.Target.Value,
		Title:                title,
		ListTitle:            n.listTitle(title, item.Sticker),
		Description:          item.Description,
		Artwork:              artworkOf(item),
		Playable:             true,
		RequiresSubscription: item.Sticker == subscriptionSticker,
		ShowTitle:            lc.ShowTitle,
		Genres:               lc.Genres,
	}

	if item.Timebar != nil {
		m.DurationSeconds = item.Timebar.End
	}
	if len(item.Rights) > 0 {
		m.AiredAt = time.Unix(item.Rights[0].Start, 0)
	}
	if item.TvRatings != nil && item.TvRatings.AgeLimit != 0 {
		m.AgeRating = item.TvRatings.AgeLimit
	}
	m.Season, m.Episode = SeasonEpisode(item.Description)

	if lc.Authenticated {
		m.Watch = WatchStateFor(lc.History, m.VideoID, m.DurationSeconds)
	}

	return m
}

func (n *Normalizer) seriesItem(item rawItem, lc *ListContext) ContentNode {
	m := MediaItem{
		Kind:                 KindSeries,
		ID:                   item.ID,
		Title:                item.Title,
		ListTitle:            n.listTitle(item.Title, item.Sticker),
		Description:          item.Description,
		Artwork:              artworkOf(item),
		RequiresSubscription: item.Sticker == subscriptionSticker,
		CanToggleFavorite:    lc.Authenticated,
	}
	if lc.Authenticated {
		m.Favorite = lc.Favorites.Has(item.ID)
	}
	return m
}

// channelItem resolves the channel's playable video id by drilling into
// the channel's own component page. One network round-trip per list row.
func (n *Normalizer) channelItem(ctx context.Context, item rawItem, lc *ListContext) (ContentNode, error) {
	page, err := n.api.Page(ctx, "channel", item.Link.Target.Value, lc.Role)
	if err != nil {
		return nil, err
	}
	videoID, ok := channelVideoID(page)
	if !ok {
		return nil, &common.MalformedUpstreamError{Reason: "channel page carries no video id"}
	}

	return MediaItem{
		Kind:                 KindChannel,
		ID:                   item.ID,
		VideoID:              videoID,
		Title:                item.TitleDetail,
		ListTitle:            n.listTitle(item.TitleDetail, item.Sticker),
		Description:          strings.TrimSpace(item.TitleTime + " " + item.Title),
		Artwork:              artworkOf(item),
		Playable:             true,
		RequiresSubscription: item.Sticker == subscriptionSticker,
	}, nil
}

// streamItem is the live sport variant; its playable id sits one level
// shallower than a channel's.
func (n *Normalizer) streamItem(ctx context.Context, item rawItem, lc *ListContext) (ContentNode, error) {
	page, err := n.api.Page(ctx, "stream", item.Link.Target.Value, lc.Role)
	if err != nil {
		return nil, err
	}
	videoID, ok := streamVideoID(page)
	if !ok {
		return nil, &common.MalformedUpstreamError{Reason: "stream page carries no video id"}
	}

	title := strings.TrimSpace(item.TitleTime + " " + item.Title)
	return MediaItem{
		Kind:                 KindLiveStream,
		ID:                   item.ID,
		VideoID:              videoID,
		Title:                title,
		ListTitle:            n.listTitle(title, item.Sticker),
		Description:          item.Description,
		Artwork:              artworkOf(item),
		Playable:             true,
		RequiresSubscription: item.Sticker == subscriptionSticker,
	}, nil
}

func (n *Normalizer) upcomingItem(item rawItem, lc *ListContext) ContentNode {
	title := strings.TrimSpace(episodePrefixRe.ReplaceAllString(item.Title, ""))

	u := UpcomingItem{
		Description: item.Description,
		Artwork:     artworkOf(item),
		ShowTitle:   lc.ShowTitle,
		Genres:      lc.Genres,
	}
	u.Season, u.Episode = SeasonEpisode(item.Description)

	if start, ok := earliestRightsStart(item); ok {
		u.AirTime = time.Unix(start, 0)
		title = title + " " + upcomingMarker + " " + FormatAirTime(u.AirTime)
	}
	u.Title = title

	return u
}

func (n *Normalizer) listTitle(title, sticker string) string {
	if sticker == subscriptionSticker && !n.plusSticker {
		return title + subscriptionSuffix
	}
	return title
}

// CleanTitle strips the leading "<number> - " episode prefix and any
// parenthetical age-limit suffix. Idempotent on already-clean titles.
func CleanTitle(title string) string {
	title = episodePrefixRe.ReplaceAllString(title, "")
	title = parentheticalRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// SeasonEpisode extracts season and episode numbers from the free-text
// description. No match leaves both at zero; that is not an error.
func SeasonEpisode(description string) (season, episode int) {
	m := seasonEpisodeRe.FindStringSubmatch(description)
	if m == nil {
		return 0, 0
	}
	return atoi(m[1]), atoi(m[2])
}

// FormatAirTime renders a rights-start timestamp the way the listing
// shows it, in local time.
func FormatAirTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

func artworkOf(item rawItem) Artwork {
	if item.Media == nil || item.Media.Images == nil {
		return Artwork{}
	}
	return Artwork{
		Thumb:  item.Media.Images["640x360"],
		Fanart: item.Media.Images["1920x1080"],
	}
}

func earliestRightsStart(item rawItem) (int64, bool) {
	if len(item.Rights) == 0 {
		return 0, false
	}
	start := item.Rights[0].Start
	for _, r := range item.Rights[1:] {
		if r.Start < start {
			start = r.Start
		}
	}
	return start, true
}

// channelVideoID drills component[0].content.items[0].content.items[0].
func channelVideoID(page *rawPage) (int64, bool) {
	if len(page.Components) == 0 || page.Components[0].Content == nil {
		return 0, false
	}
	outer := page.Components[0].Content.Items
	if len(outer) == 0 || outer[0].Content == nil {
		return 0, false
	}
	inner := outer[0].Content.Items
	if len(inner) == 0 || inner[0].VideoID == 0 {
		return 0, false
	}
	return inner[0].VideoID, true
}

// streamVideoID drills component[0].content.items[0].
func streamVideoID(page *rawPage) (int64, bool) {
	if len(page.Components) == 0 || page.Components[0].Content == nil {
		return 0, false
	}
	items := page.Components[0].Content.Items
	if len(items) == 0 || items[0].VideoID == 0 {
		return 0, false
	}
	return items[0].VideoID, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
