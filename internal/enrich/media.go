package enrich

import (
	"sort"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/twitter"
)

// buildMediaList assembles the tweet's media in render order. Extended
// entities are the authoritative source; the plain legacy set is the
// fallback. When the note tweet declares inline-media ordering, the list is
// reordered to match it.
func buildMediaList(t *twitter.RawTweet, note *twitter.NoteTweetResult) []types.Media {
	source := t.Legacy.ExtendedEntities.Media
	if len(source) == 0 {
		source = t.Legacy.Entities.Media
	}
	if len(source) == 0 {
		return nil
	}

	media := make([]types.Media, 0, len(source))
	for _, m := range source {
		switch m.Type {
		case "photo", "video", "animated_gif":
		default:
			continue
		}
		item := types.Media{
			ID:      m.IDStr,
			Kind:    m.Type,
			URL:     m.MediaURLHTTPS,
			AltText: m.ExtAltText,
		}
		if m.VideoInfo != nil {
			if url, bitrate, ok := bestVariant(m); ok {
				item.PreviewURL = m.MediaURLHTTPS
				item.URL = url
				item.Bitrate = bitrate
			}
		}
		media = append(media, item)
	}

	if note != nil && note.Media != nil && len(note.Media.InlineMedia) > 0 {
		position := make(map[string]int, len(note.Media.InlineMedia))
		for _, im := range note.Media.InlineMedia {
			position[im.MediaID] = im.Index
		}
		sort.SliceStable(media, func(i, j int) bool {
			return inlinePosition(position, media[i].ID) < inlinePosition(position, media[j].ID)
		})
	}
	return media
}

// bestVariant picks the highest-bitrate variant of a video or animated GIF;
// on equal bitrates the later variant wins.
func bestVariant(m twitter.RawMedia) (url string, bitrate int, ok bool) {
	for _, v := range m.VideoInfo.Variants {
		if v.URL == "" {
			continue
		}
		if !ok || v.Bitrate >= bitrate {
			url, bitrate, ok = v.URL, v.Bitrate, true
		}
	}
	return url, bitrate, ok
}

// inlinePosition keeps media absent from the inline ordering after those the
// note mentions, preserving their relative order.
func inlinePosition(position map[string]int, id string) int {
	if p, ok := position[id]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}
