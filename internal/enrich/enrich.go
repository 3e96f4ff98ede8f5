// Package enrich turns opaque raw tweets into the normalized archive model.
// Everything here is pure: the same raw payload always produces the same
// enriched tweet, and raw payloads are never mutated.
package enrich

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/twitter"
)

// Sentinel index bands for media-derived annotation entities. They sit above
// any realistic entity count so their identity is stable across re-runs even
// as the standard entity list changes.
const (
	separatorIndexBase = 20000
	mediaAltIndexBase  = 30000
)

// leadingMentionsRe matches the reply-chain run of @mentions at the start of
// the raw text.
var leadingMentionsRe = regexp.MustCompile(`^(@\w+\s+)+`)

// Enrich normalizes one raw tweet. Tombstones yield (nil, nil). Retweets
// recurse into the wrapped original; the result is keyed to the original's
// content with RetweetID carrying the outer wrapper's rest_id.
func Enrich(raw *twitter.RawTweet) (*types.EnrichedTweet, error) {
	if raw.IsTombstone() {
		return nil, nil
	}
	t := raw.Unwrap()

	if original := t.RetweetedOriginal(); original != nil {
		enriched, err := Enrich(original)
		if err != nil || enriched == nil {
			return enriched, err
		}
		enriched.RetweetID = t.RestID
		return enriched, nil
	}

	if t.RestID == "" {
		return nil, fmt.Errorf("empty tweet rest_id (typename=%s)", t.TypeName)
	}
	createdAt := twitter.ParseCreatedAt(t.Legacy.CreatedAt)
	if createdAt.IsZero() {
		return nil, fmt.Errorf("tweet %s has no usable created_at %q", t.RestID, t.Legacy.CreatedAt)
	}

	// Long-form note text and its entity set supersede the short form. The
	// two sets are mutually exclusive sources, never merged.
	rawText := t.Legacy.FullText
	entitySet := t.Legacy.Entities
	var note *twitter.NoteTweetResult
	if t.NoteTweet != nil {
		note = &t.NoteTweet.NoteTweetResults.Result
		rawText = note.Text
		entitySet = note.EntitySet
	}

	leadingEnd := leadingMentionEnd(rawText)
	displayText := string([]rune(rawText)[leadingEnd:])

	ranges := extractRanges(entitySet, leadingEnd)
	ranges = dedupeRanges(ranges)
	sortRanges(ranges)

	media := buildMediaList(t, note)
	entities := walkEntities(displayText, ranges)
	entities = append(entities, altTextEntities(media)...)

	user := t.Core.UserResults.Result
	enriched := &types.EnrichedTweet{
		ID:        t.RestID,
		URL:       tweetURL(user.Legacy.ScreenName, t.RestID),
		CreatedAt: createdAt,
		Text:      displayText,
		User: types.UserSummary{
			RestID:          user.RestID,
			ScreenName:      user.Legacy.ScreenName,
			Name:            user.Legacy.Name,
			ProfileImageURL: user.Legacy.ProfileImageURL,
		},
		Entities: entities,
		QuotedID: quotedID(t),
		Card:     buildCard(t.Card),
		Media:    media,
	}
	return enriched, nil
}

// EnrichBatch normalizes a page of raw tweets. A malformed item is logged and
// dropped; it never aborts the batch. Tombstones are dropped silently.
func EnrichBatch(raws []*twitter.RawTweet, accountID string) []*types.EnrichedTweet {
	out := make([]*types.EnrichedTweet, 0, len(raws))
	for _, raw := range raws {
		enriched, err := enrichOne(raw)
		if err != nil {
			logrus.Warnf("dropping malformed tweet for account %s: %v", accountID, err)
			continue
		}
		if enriched == nil {
			continue
		}
		out = append(out, enriched)
	}
	return out
}

// enrichOne shields the batch from panics on hostile payloads.
func enrichOne(raw *twitter.RawTweet) (enriched *types.EnrichedTweet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while enriching: %v", r)
		}
	}()
	return Enrich(raw)
}

// leadingMentionEnd returns the codepoint length of the leading @mention run.
func leadingMentionEnd(rawText string) int {
	match := leadingMentionsRe.FindString(rawText)
	return utf8.RuneCountInString(match)
}

func quotedID(t *twitter.RawTweet) string {
	if t.Legacy.QuotedStatusIDStr != "" {
		return t.Legacy.QuotedStatusIDStr
	}
	if t.QuotedStatusResult != nil && t.QuotedStatusResult.Result != nil {
		return t.QuotedStatusResult.Result.Unwrap().RestID
	}
	return ""
}

func tweetURL(screenName, restID string) string {
	if screenName == "" {
		return fmt.Sprintf("https://x.com/i/web/status/%s", restID)
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", screenName, restID)
}

// altTextEntities builds the sentinel-indexed separator/media_alt pairs for
// every media item carrying accessibility alt text.
func altTextEntities(media []types.Media) []types.Entity {
	var out []types.Entity
	for i, m := range media {
		if m.AltText == "" {
			continue
		}
		out = append(out,
			types.Entity{
				Index: separatorIndexBase + i,
				Kind:  types.EntitySeparator,
				Text:  "\n",
			},
			types.Entity{
				Index: mediaAltIndexBase + i,
				Kind:  types.EntityMediaAlt,
				Text:  m.AltText,
			},
		)
	}
	return out
}
