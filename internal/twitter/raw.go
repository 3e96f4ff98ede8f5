// Package twitter models the upstream GraphQL timeline payload. The structs
// mirror the wire shape and are read-only: normalization into the archive
// model happens in the enrich package, never here.
package twitter

import (
	"encoding/json"
	"time"
)

// CreatedAtLayout is the legacy "ruby date" format upstream uses everywhere.
const CreatedAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// ParseCreatedAt parses an upstream created_at value. The zero time is
// returned for empty or malformed values.
func ParseCreatedAt(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(CreatedAtLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RawTweet is one timeline item as delivered by upstream. It may wrap the
// actual tweet (visibility results), wrap a retweeted original, or be a
// tombstone for a deleted/withheld tweet.
type RawTweet struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`

	// Tweet is set for the TweetWithVisibilityResults wrapper.
	Tweet *RawTweet `json:"tweet,omitempty"`

	Core struct {
		UserResults struct {
			Result RawUser `json:"result"`
		} `json:"user_results"`
	} `json:"core"`

	Legacy RawLegacy `json:"legacy"`

	NoteTweet *struct {
		NoteTweetResults struct {
			Result NoteTweetResult `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet,omitempty"`

	Card *RawCard `json:"card,omitempty"`

	QuotedStatusResult *struct {
		Result *RawTweet `json:"result"`
	} `json:"quoted_status_result,omitempty"`
}

// Unwrap strips the visibility-results wrapper, when present.
func (r *RawTweet) Unwrap() *RawTweet {
	if r != nil && r.Tweet != nil {
		return r.Tweet.Unwrap()
	}
	return r
}

// IsTombstone reports whether the item is a deleted or unavailable tweet.
func (r *RawTweet) IsTombstone() bool {
	if r == nil {
		return true
	}
	t := r.Unwrap()
	return t == nil || t.TypeName == "TweetTombstone" || t.TypeName == "TweetUnavailable"
}

// RetweetedOriginal returns the wrapped original for retweets, nil otherwise.
func (r *RawTweet) RetweetedOriginal() *RawTweet {
	t := r.Unwrap()
	if t.Legacy.RetweetedStatusResult != nil {
		return t.Legacy.RetweetedStatusResult.Result
	}
	return nil
}

type RawLegacy struct {
	IDStr             string       `json:"id_str"`
	FullText          string       `json:"full_text"`
	CreatedAt         string       `json:"created_at"`
	QuotedStatusIDStr string       `json:"quoted_status_id_str"`
	Entities          RawEntitySet `json:"entities"`
	ExtendedEntities  struct {
		Media []RawMedia `json:"media"`
	} `json:"extended_entities"`
	RetweetedStatusResult *struct {
		Result *RawTweet `json:"result"`
	} `json:"retweeted_status_result,omitempty"`
}

// NoteTweetResult is the long-form text attached to notes; its text and
// entity set supersede the legacy short-form ones when present.
type NoteTweetResult struct {
	Text      string       `json:"text"`
	EntitySet RawEntitySet `json:"entity_set"`
	Media     *struct {
		InlineMedia []struct {
			MediaID string `json:"media_id"`
			Index   int    `json:"index"`
		} `json:"inline_media"`
	} `json:"media,omitempty"`
}

// RawEntitySet carries the index-annotated spans of one text variant.
// Indices are codepoint offsets into the raw text.
type RawEntitySet struct {
	Hashtags []struct {
		Text    string `json:"text"`
		Indices []int  `json:"indices"`
	} `json:"hashtags"`
	Symbols []struct {
		Text    string `json:"text"`
		Indices []int  `json:"indices"`
	} `json:"symbols"`
	UserMentions []struct {
		ScreenName string `json:"screen_name"`
		Indices    []int  `json:"indices"`
	} `json:"user_mentions"`
	URLs []struct {
		URL         string `json:"url"`
		ExpandedURL string `json:"expanded_url"`
		Indices     []int  `json:"indices"`
	} `json:"urls"`
	Media []RawMedia `json:"media"`
}

type RawMedia struct {
	IDStr         string `json:"id_str"`
	Type          string `json:"type"` // photo, video, animated_gif
	URL           string `json:"url"`
	MediaURLHTTPS string `json:"media_url_https"`
	ExtAltText    string `json:"ext_alt_text"`
	Indices       []int  `json:"indices"`
	VideoInfo     *struct {
		Variants []struct {
			Bitrate     int    `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info,omitempty"`
}

// RawCard is the flat key/value binding list backing link previews.
type RawCard struct {
	Legacy struct {
		Name          string            `json:"name"`
		BindingValues []RawBindingValue `json:"binding_values"`
	} `json:"legacy"`
}

type RawBindingValue struct {
	Key   string `json:"key"`
	Value struct {
		Type        string `json:"type"`
		StringValue string `json:"string_value"`
		ImageValue  struct {
			URL string `json:"url"`
		} `json:"image_value"`
	} `json:"value"`
}

// Bindings flattens the list into a key-indexed map.
func (c *RawCard) Bindings() map[string]RawBindingValue {
	m := make(map[string]RawBindingValue, len(c.Legacy.BindingValues))
	for _, bv := range c.Legacy.BindingValues {
		m[bv.Key] = bv
	}
	return m
}

type RawUser struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Legacy   struct {
		Name            string `json:"name"`
		ScreenName      string `json:"screen_name"`
		ProfileImageURL string `json:"profile_image_url_https"`
	} `json:"legacy"`
}

// rawItemContent is the itemContent discriminator inside a timeline entry.
type rawItemContent struct {
	TypeName     string `json:"__typename"`
	TweetResults struct {
		Result json.RawMessage `json:"result"`
	} `json:"tweet_results"`
}
