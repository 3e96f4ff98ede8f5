package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/api/types"
)

// archiveFile is the on-disk layout of one account's archive.
type archiveFile struct {
	AccountID     string                          `json:"account_id"`
	LatestTweetAt time.Time                       `json:"latest_tweet_at"`
	Tweets        map[string]*types.EnrichedTweet `json:"tweets"`
}

// FileRepository archives tweets as one JSON file per account under a data
// directory. Writes go through a temp file and rename, so a crashed write
// never leaves a truncated archive behind.
type FileRepository struct {
	dir   string
	mutex sync.Mutex
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) Name() string {
	return "file"
}

func (r *FileRepository) GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("reading archive dir: %w", err)
	}

	checkpoints := make(map[string]time.Time)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		archive, err := r.load(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			logrus.Warnf("skipping unreadable archive %s: %v", entry.Name(), err)
			continue
		}
		if archive.AccountID != "" && !archive.LatestTweetAt.IsZero() {
			checkpoints[archive.AccountID] = archive.LatestTweetAt
		}
	}
	return checkpoints, nil
}

func (r *FileRepository) SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	path := r.path(cp.AccountID)
	archive, err := r.load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("loading archive for %s: %w", cp.AccountID, err)
		}
		archive = &archiveFile{AccountID: cp.AccountID, Tweets: map[string]*types.EnrichedTweet{}}
	}

	inserted := 0
	for _, tweet := range tweets {
		if _, exists := archive.Tweets[tweet.ID]; exists {
			continue
		}
		archive.Tweets[tweet.ID] = tweet
		inserted++
	}
	// Watermarks only move forward.
	if cp.LatestTweetAt.After(archive.LatestTweetAt) {
		archive.LatestTweetAt = cp.LatestTweetAt
	}

	if err := r.store(path, archive); err != nil {
		return 0, fmt.Errorf("storing archive for %s: %w", cp.AccountID, err)
	}
	logrus.Debugf("file backend stored %d/%d tweets for %s", inserted, len(tweets), cp.AccountID)
	return inserted, nil
}

func (r *FileRepository) path(accountID string) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s.json", accountID))
}

func (r *FileRepository) load(path string) (*archiveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var archive archiveFile
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("unmarshaling archive: %w", err)
	}
	if archive.Tweets == nil {
		archive.Tweets = map[string]*types.EnrichedTweet{}
	}
	return &archive, nil
}

func (r *FileRepository) store(path string, archive *archiveFile) error {
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling archive: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
