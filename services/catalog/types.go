package catalog

import (
	"time"

	"github.com/ruutu-tools/ruutu-client/services/storage"
)

// ContentNode is the normalized catalog item: a closed union over the
// navigation and media variants the component API produces. Anything the
// normalizer does not recognize never becomes a node.
type ContentNode interface {
	contentNode()
}

// PageGroup is a navigational grouping with no content of its own.
type PageGroup struct {
	Title    string
	Children []ContentNode
}

// PageLeaf resolves to a further grid listing keyed by page id.
type PageLeaf struct {
	Title  string
	PageID int64
}

// GridRef is a fetchable content shelf with its own query endpoint.
type GridRef struct {
	ID          int64
	Label       string
	QueryURL    string
	QueryParams map[string]any
	// Hits is only set on search result grids.
	Hits int
}

type MediaKind string

const (
	KindEpisode    MediaKind = "episode"
	KindSeries     MediaKind = "series"
	KindChannel    MediaKind = "channel"
	KindLiveStream MediaKind = "livestream"
)

type Artwork struct {
	Thumb  string
	Fanart string
}

// MediaItem is a playable or browsable leaf unit. Exactly one Kind is set.
type MediaItem struct {
	Kind        MediaKind
	ID          int64
	VideoID     int64
	Title       string
	ListTitle   string
	Description string
	AgeRating   int
	Artwork     Artwork
	Playable    bool

	// RequiresSubscription marks sticker-gated content; whether the
	// suffix lands in ListTitle is controlled by the sticker setting.
	RequiresSubscription bool

	Watch WatchState

	// Favorite state is only meaningful for series on an authenticated
	// session; CanToggleFavorite gates the affordance.
	Favorite          bool
	CanToggleFavorite bool

	Season  int
	Episode int

	ShowTitle       string
	Genres          []string
	DurationSeconds int64
	AiredAt         time.Time
}

// UpcomingItem is a non-playable placeholder for content that is not yet
// available.
type UpcomingItem struct {
	Title       string
	AirTime     time.Time
	Description string
	Artwork     Artwork
	Season      int
	Episode     int
	ShowTitle   string
	Genres      []string
}

func (PageGroup) contentNode()    {}
func (PageLeaf) contentNode()     {}
func (GridRef) contentNode()      {}
func (MediaItem) contentNode()    {}
func (UpcomingItem) contentNode() {}

// ListingPage is one page of a grid query. HasMore is derived from the
// observed item count; the API carries no total, so the last page is only
// detected after a short page.
type ListingPage struct {
	Items   []ContentNode
	HasMore bool
}

type WatchStatus string

const (
	Unwatched        WatchStatus = "unwatched"
	PartiallyWatched WatchStatus = "partially_watched"
	Watched          WatchStatus = "watched"
)

type WatchState struct {
	Status        WatchStatus
	ResumeSeconds int64
	TotalSeconds  int64
}

// WatchStateFor cross-references the history collection against a video
// id. No matching record means unwatched; a record whose unfinished flag
// was cleared means watched; a recorded position means partially watched.
func WatchStateFor(history []storage.HistoryRecord, videoID int64, totalSeconds int64) WatchState {
	for _, h := range history {
		if h.Video != videoID {
			continue
		}
		if !h.Unfinished {
			return WatchState{Status: Watched, TotalSeconds: totalSeconds}
		}
		if h.Watched == nil {
			return WatchState{Status: Unwatched}
		}
		return WatchState{
			Status:        PartiallyWatched,
			ResumeSeconds: *h.Watched,
			TotalSeconds:  totalSeconds,
		}
	}
	return WatchState{Status: Unwatched}
}
