package enrich

import (
	"encoding/json"
	"sort"

	"github.com/tweetvault/tweetvault/api/types"
	"github.com/tweetvault/tweetvault/internal/twitter"
)

// cardImageKeys is the fixed priority list for picking the preview image from
// the flat binding values: full-size first, then thumbnail, player, summary.
var cardImageKeys = []string{
	"photo_image_full_size_large",
	"photo_image_full_size",
	"thumbnail_image_large",
	"thumbnail_image",
	"player_image_large",
	"player_image",
	"summary_photo_image_large",
	"summary_photo_image",
}

// buildCard assembles the link preview from the card's flat binding values.
// Unified cards additionally carry a JSON blob whose values win when they
// parse. Missing or malformed card data degrades to no card, never an error;
// a card with no title, description and image is dropped entirely.
func buildCard(raw *twitter.RawCard) *types.Card {
	if raw == nil {
		return nil
	}
	bindings := raw.Bindings()

	card := types.Card{
		Title:          stringBinding(bindings, "title"),
		Description:    stringBinding(bindings, "description"),
		Domain:         stringBinding(bindings, "domain"),
		DestinationURL: stringBinding(bindings, "card_url"),
	}
	if card.Domain == "" {
		card.Domain = stringBinding(bindings, "vanity_url")
	}
	for _, key := range cardImageKeys {
		if bv, ok := bindings[key]; ok && bv.Value.ImageValue.URL != "" {
			card.ImageURL = bv.Value.ImageValue.URL
			break
		}
	}

	if raw.Legacy.Name == "unified_card" {
		applyUnifiedCard(&card, stringBinding(bindings, "unified_card"))
	}

	if card.Empty() {
		return nil
	}
	return &card
}

func stringBinding(bindings map[string]twitter.RawBindingValue, key string) string {
	if bv, ok := bindings[key]; ok {
		return bv.Value.StringValue
	}
	return ""
}

// applyUnifiedCard parses the embedded unified-card JSON blob and overrides
// the flat-binding values with whatever it yields. Parse failures leave the
// card untouched.
func applyUnifiedCard(card *types.Card, blob string) {
	if blob == "" {
		return
	}
	var uc struct {
		ComponentObjects map[string]struct {
			Data struct {
				Title struct {
					Content string `json:"content"`
				} `json:"title"`
				Subtitle struct {
					Content string `json:"content"`
				} `json:"subtitle"`
				Destination string `json:"destination"`
			} `json:"data"`
		} `json:"component_objects"`
		DestinationObjects map[string]struct {
			Data struct {
				URLData struct {
					URL string `json:"url"`
				} `json:"url_data"`
			} `json:"data"`
		} `json:"destination_objects"`
		MediaEntities map[string]struct {
			MediaURLHTTPS string `json:"media_url_https"`
		} `json:"media_entities"`
	}
	if err := json.Unmarshal([]byte(blob), &uc); err != nil {
		return
	}

	// Map iteration order is random; walk keys sorted so the same blob always
	// yields the same card.
	for _, key := range sortedKeys(uc.ComponentObjects) {
		component := uc.ComponentObjects[key]
		if component.Data.Title.Content == "" {
			continue
		}
		card.Title = component.Data.Title.Content
		if component.Data.Subtitle.Content != "" {
			card.Domain = component.Data.Subtitle.Content
		}
		if dest, ok := uc.DestinationObjects[component.Data.Destination]; ok && dest.Data.URLData.URL != "" {
			card.DestinationURL = dest.Data.URLData.URL
		}
		break
	}
	for _, key := range sortedKeys(uc.MediaEntities) {
		if u := uc.MediaEntities[key].MediaURLHTTPS; u != "" {
			card.ImageURL = u
			break
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
