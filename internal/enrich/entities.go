package enrich

import (
	"net/url"
	"sort"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/twitter"
)

// entityRange is one raw span before it is materialized against the display
// text. Offsets are codepoints, already shifted for the stripped prefix.
type entityRange struct {
	start, end int
	kind       types.EntityKind
	href       string
}

// extractRanges collects the spans of one entity set, discards those fully
// inside the stripped leading-mention prefix, and shifts the survivors left.
// Media spans collapse to [0,0): they annotate the tweet, they occupy no text.
func extractRanges(set twitter.RawEntitySet, leadingEnd int) []entityRange {
	var ranges []entityRange

	add := func(indices []int, kind types.EntityKind, href string) {
		if len(indices) != 2 {
			return
		}
		start, end := indices[0], indices[1]
		if end <= leadingEnd {
			return
		}
		start = max(start-leadingEnd, 0)
		end -= leadingEnd
		if kind == types.EntityMedia {
			start, end = 0, 0
		}
		ranges = append(ranges, entityRange{start: start, end: end, kind: kind, href: href})
	}

	for _, h := range set.Hashtags {
		add(h.Indices, types.EntityHashtag, "https://x.com/hashtag/"+url.PathEscape(h.Text))
	}
	for _, s := range set.Symbols {
		add(s.Indices, types.EntitySymbol, "https://x.com/search?q="+url.QueryEscape("$"+s.Text))
	}
	for _, m := range set.UserMentions {
		add(m.Indices, types.EntityMention, "https://x.com/"+m.ScreenName)
	}
	for _, u := range set.URLs {
		href := u.ExpandedURL
		if href == "" {
			href = u.URL
		}
		add(u.Indices, types.EntityURL, href)
	}
	for _, m := range set.Media {
		add(m.Indices, types.EntityMedia, m.MediaURLHTTPS)
	}
	return ranges
}

// dedupeRanges drops spans that appear twice with the same (start, end, kind),
// which happens when a span shows up in both the legacy and note entity sets.
func dedupeRanges(ranges []entityRange) []entityRange {
	type key struct {
		start, end int
		kind       types.EntityKind
	}
	seen := make(map[key]bool, len(ranges))
	out := ranges[:0]
	for _, r := range ranges {
		k := key{r.start, r.end, r.kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// sortRanges orders spans ascending by start, with every media span after
// every non-media one regardless of numeric value (media spans are [0,0)).
func sortRanges(ranges []entityRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		im, jm := ranges[i].kind.IsMedia(), ranges[j].kind.IsMedia()
		if im != jm {
			return jm
		}
		if ranges[i].start != ranges[j].start {
			return ranges[i].start < ranges[j].start
		}
		return ranges[i].end < ranges[j].end
	})
}

// walkEntities materializes the sorted ranges over the display text, emitting
// implicit text entities for gaps so that concatenating every non-media
// entity's text in index order reproduces the display text exactly. The walk
// iterates by codepoint; upstream indices are codepoints, not UTF-16 units or
// bytes, and emoji must survive intact.
func walkEntities(displayText string, ranges []entityRange) []types.Entity {
	runes := []rune(displayText)
	var entities []types.Entity

	emit := func(e types.Entity) {
		e.Index = len(entities)
		entities = append(entities, e)
	}

	// Media ranges sort last, so the slice splits cleanly: text-bearing spans
	// first, media afterwards. The trailing text entity must still precede
	// every media entity in index order.
	textRanges := ranges
	var mediaRanges []entityRange
	for i, r := range ranges {
		if r.kind.IsMedia() {
			textRanges, mediaRanges = ranges[:i], ranges[i:]
			break
		}
	}

	cursor := 0
	for _, r := range textRanges {
		start, end := min(r.start, len(runes)), min(r.end, len(runes))
		if start < cursor || start >= end {
			// Overlapping or degenerate after clamping; the text is already
			// covered, keep the invariant and drop the span.
			continue
		}
		if start > cursor {
			emit(types.Entity{
				Kind:  types.EntityText,
				Text:  string(runes[cursor:start]),
				Start: cursor,
				End:   start,
			})
		}
		emit(types.Entity{
			Kind:  r.kind,
			Text:  string(runes[start:end]),
			Href:  r.href,
			Start: start,
			End:   end,
		})
		cursor = end
	}
	if cursor < len(runes) {
		emit(types.Entity{
			Kind:  types.EntityText,
			Text:  string(runes[cursor:]),
			Start: cursor,
			End:   len(runes),
		})
	}
	for _, r := range mediaRanges {
		emit(types.Entity{Kind: types.EntityMedia, Href: r.href})
	}
	return entities
}
