package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tweetvault/tweetvault/api/types"
)

type fakeIterator struct {
	batches []*types.FetchBatch
	err     error
	idx     int
}

func (f *fakeIterator) Next(ctx context.Context) (*types.FetchBatch, bool) {
	if f.idx >= len(f.batches) {
		return nil, false
	}
	batch := f.batches[f.idx]
	f.idx++
	return batch, true
}

func (f *fakeIterator) Err() error {
	if f.idx >= len(f.batches) {
		return f.err
	}
	return nil
}

type fakeSource struct {
	batches map[string][]*types.FetchBatch
	errs    map[string]error
}

func (f *fakeSource) Iterate(accountID, startCursor string) PageIterator {
	return &fakeIterator{batches: f.batches[accountID], err: f.errs[accountID]}
}

type savedPage struct {
	cp     types.Checkpoint
	tweets []*types.EnrichedTweet
}

type fakeRepo struct {
	mutex       sync.Mutex
	checkpoints map[string]time.Time
	readErr     error
	saveErr     error
	saves       []savedPage
}

func (f *fakeRepo) Name() string { return "fake" }

func (f *fakeRepo) GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.checkpoints, nil
}

func (f *fakeRepo) SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saves = append(f.saves, savedPage{cp: cp, tweets: tweets})
	return len(tweets), nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func mkTweet(id string, at time.Time) *types.EnrichedTweet {
	return &types.EnrichedTweet{ID: id, CreatedAt: at, Text: "tweet " + id}
}

func page(hasMore bool, tweets ...*types.EnrichedTweet) *types.FetchBatch {
	return &types.FetchBatch{Tweets: tweets, HasMore: hasMore, NextCursor: "C"}
}

var _ = Describe("Syncer", func() {
	var (
		ctx  context.Context
		repo *fakeRepo
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &fakeRepo{checkpoints: map[string]time.Time{}}
	})

	newSyncer := func(source PageSource, opts ...Option) *Syncer {
		return New(source, repo, opts...)
	}

	Describe("SyncAccount", func() {
		It("persists only tweets newer than the checkpoint and stops at synced history", func() {
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {
					page(true, mkTweet("20", day(20)), mkTweet("15", day(15)), mkTweet("9", day(9))),
					page(true, mkTweet("8", day(8))),
				},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", day(10))
			Expect(result.Outcome).To(Equal(types.OutcomeReachedCheckpoint))
			Expect(result.Inserted).To(Equal(2))

			// The page reaching into history is persisted, the next never fetched.
			Expect(repo.saves).To(HaveLen(1))
			Expect(repo.saves[0].tweets).To(HaveLen(2))
			Expect(repo.saves[0].tweets[0].ID).To(Equal("20"))
			Expect(repo.saves[0].tweets[1].ID).To(Equal("15"))
			Expect(repo.saves[0].cp.LatestTweetAt).To(Equal(day(20)))
		})

		It("never persists a tweet at or before the checkpoint", func() {
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {page(true, mkTweet("10", day(10)), mkTweet("9", day(9)))},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", day(10))
			Expect(result.Outcome).To(Equal(types.OutcomeReachedCheckpoint))
			Expect(result.Inserted).To(Equal(0))
			Expect(repo.saves).To(BeEmpty())
		})

		It("reports an exhausted timeline", func() {
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {page(false)},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", time.Time{})
			Expect(result.Outcome).To(Equal(types.OutcomeExhausted))
			Expect(result.Inserted).To(Equal(0))
		})

		It("walks every page of a fresh account to exhaustion", func() {
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {
					page(true, mkTweet("3", day(3))),
					page(true, mkTweet("2", day(2))),
					page(false, mkTweet("1", day(1))),
				},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", time.Time{})
			Expect(result.Outcome).To(Equal(types.OutcomeExhausted))
			Expect(result.Inserted).To(Equal(3))
			Expect(repo.saves).To(HaveLen(3))
		})

		It("detects a duplicate pagination boundary", func() {
			repeated := page(true, mkTweet("5", day(5)), mkTweet("4", day(4)))
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {repeated, repeated, repeated},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", time.Time{})
			Expect(result.Outcome).To(Equal(types.OutcomeDuplicateBoundary))
			// The first occurrence is persisted, the loop stops on the second.
			Expect(repo.saves).To(HaveLen(1))
			Expect(result.Inserted).To(Equal(2))
		})

		It("reports iterator failures with the tweets inserted so far", func() {
			source := &fakeSource{
				batches: map[string][]*types.FetchBatch{
					"carol": {page(true, mkTweet("3", day(3)))},
				},
				errs: map[string]error{"carol": errors.New("rate limit pool exhausted")},
			}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", time.Time{})
			Expect(result.Outcome).To(Equal(types.OutcomeError))
			Expect(result.Error).To(ContainSubstring("rate limit pool exhausted"))
			Expect(result.Inserted).To(Equal(1))
		})

		It("reports repository failures", func() {
			repo.saveErr = errors.New("disk full")
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {page(true, mkTweet("3", day(3)))},
			}}
			s := newSyncer(source)

			result := s.SyncAccount(ctx, "carol", time.Time{})
			Expect(result.Outcome).To(Equal(types.OutcomeError))
			Expect(result.Error).To(ContainSubstring("disk full"))
		})
	})

	Describe("SyncAll", func() {
		It("isolates account failures", func() {
			repo.saveErr = nil
			source := &fakeSource{
				batches: map[string][]*types.FetchBatch{
					"carol": {page(false, mkTweet("1", day(1)))},
				},
				errs: map[string]error{"dave": errors.New("suspended")},
			}
			s := newSyncer(source, WithConcurrency(2))

			results := s.SyncAll(ctx, []string{"carol", "dave"})
			Expect(results).To(HaveLen(2))
			Expect(results[0].Account).To(Equal("carol"))
			Expect(results[0].Success()).To(BeTrue())
			Expect(results[1].Account).To(Equal("dave"))
			Expect(results[1].Outcome).To(Equal(types.OutcomeError))
		})

		It("applies the stored checkpoint per account", func() {
			repo.checkpoints = map[string]time.Time{"carol": day(10)}
			source := &fakeSource{batches: map[string][]*types.FetchBatch{
				"carol": {page(true, mkTweet("9", day(9)))},
			}}
			s := newSyncer(source)

			results := s.SyncAll(ctx, []string{"carol"})
			Expect(results[0].Outcome).To(Equal(types.OutcomeReachedCheckpoint))
			Expect(repo.saves).To(BeEmpty())
		})

		It("fails every account when the checkpoint read fails", func() {
			repo.readErr = errors.New("connection refused")
			s := newSyncer(&fakeSource{})

			results := s.SyncAll(ctx, []string{"carol", "dave"})
			Expect(results).To(HaveLen(2))
			for _, r := range results {
				Expect(r.Outcome).To(Equal(types.OutcomeError))
				Expect(r.Error).To(ContainSubstring("connection refused"))
			}
		})
	})
})
