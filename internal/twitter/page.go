package twitter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimelinePage is one parsed page of an account timeline. Entries hold the
// raw tweets in page order, tombstones included; NextCursor is empty when the
// page carries no bottom cursor.
type TimelinePage struct {
	Entries    []*RawTweet
	User       RawUser
	NextCursor string
}

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID string          `json:"entryId"`
	Content timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

// ParseTimelinePage parses a raw timeline response body. Entries that fail to
// parse individually are logged and skipped; only a malformed envelope is an
// error.
func ParseTimelinePage(body []byte) (*TimelinePage, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal timeline page: %w", err)
	}
	if len(raw.Errors) > 0 {
		return nil, fmt.Errorf("timeline API error: %s", raw.Errors[0].Message)
	}

	tl := raw.Data.User.Result.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = raw.Data.User.Result.TimelineV2.Timeline
	}

	page := &TimelinePage{}
	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					page.NextCursor = entry.Content.Value
				}
				continue
			}
			if entry.Content.ItemContent == nil {
				continue
			}
			var item rawItemContent
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				logrus.Debugf("skip unparseable timeline item %s: %v", entry.EntryID, err)
				continue
			}
			if item.TypeName != "TimelineTweet" {
				continue
			}
			var tweet RawTweet
			if err := json.Unmarshal(item.TweetResults.Result, &tweet); err != nil {
				logrus.Debugf("skip unparseable tweet result %s: %v", entry.EntryID, err)
				continue
			}
			page.Entries = append(page.Entries, &tweet)

			if page.User.RestID == "" {
				if u := tweet.Unwrap(); u != nil && !tweet.IsTombstone() {
					page.User = u.Core.UserResults.Result
				}
			}
		}
	}
	return page, nil
}
