package types

import "time"

// EntityKind identifies the kind of a tweet text entity.
type EntityKind string

const (
	EntityText      EntityKind = "text"
	EntityHashtag   EntityKind = "hashtag"
	EntityMention   EntityKind = "mention"
	EntityURL       EntityKind = "url"
	EntitySymbol    EntityKind = "symbol"
	EntityMedia     EntityKind = "media"
	EntityMediaAlt  EntityKind = "media_alt"
	EntitySeparator EntityKind = "separator"
)

// IsMedia reports whether the kind annotates media rather than occupying text.
func (k EntityKind) IsMedia() bool {
	return k == EntityMedia
}

// Entity is one typed span of a tweet's display text. Start and End are
// codepoint offsets into the display text; media entities carry the
// degenerate range [0,0). Concatenating the Text of all non-media entities in
// ascending Index order reproduces the display text exactly.
type Entity struct {
	Index int        `json:"index"`
	Kind  EntityKind `json:"type"`
	Text  string     `json:"text"`
	Href  string     `json:"href,omitempty"`
	Start int        `json:"start"`
	End   int        `json:"end"`
}

// Media is one photo, video or animated GIF attached to a tweet.
type Media struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"` // photo, video or animated_gif
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url,omitempty"`
	AltText    string `json:"alt_text,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
}

// Card is the link-preview attached to a tweet, when one exists.
type Card struct {
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Domain         string `json:"domain,omitempty"`
	DestinationURL string `json:"destination_url,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

// Empty reports whether the card carries nothing worth rendering.
func (c Card) Empty() bool {
	return c.Title == "" && c.Description == "" && c.ImageURL == ""
}

// UserSummary is the minimal account profile attached to archived tweets.
type UserSummary struct {
	RestID          string `json:"rest_id"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// EnrichedTweet is the normalized, immutable archive representation of one
// tweet. It is created once by the enrichment engine and never mutated.
type EnrichedTweet struct {
	ID        string      `json:"id"`
	URL       string      `json:"url"`
	CreatedAt time.Time   `json:"created_at"`
	Text      string      `json:"text"`
	User      UserSummary `json:"user"`
	Entities  []Entity    `json:"entities"`

	// QuotedID is the rest_id of the quoted tweet, when this tweet quotes one.
	QuotedID string `json:"quoted_id,omitempty"`
	// RetweetID is the rest_id of the enclosing retweet when this tweet
	// arrived wrapped in one; the enriched content is keyed to the original.
	RetweetID string `json:"retweet_id,omitempty"`

	Card  *Card   `json:"card,omitempty"`
	Media []Media `json:"media,omitempty"`
}

// FetchBatch is one page of a timeline, consumed once by the sync loop.
type FetchBatch struct {
	Tweets     []*EnrichedTweet `json:"tweets"`
	User       UserSummary      `json:"user"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}
