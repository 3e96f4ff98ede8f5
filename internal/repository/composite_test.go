package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tweetvault/tweetvault/api/types"
)

type fakeBackend struct {
	name        string
	checkpoints map[string]time.Time
	readErr     error

	mutex     sync.Mutex
	saveCount int
	saveErr   error
	saves     []types.Checkpoint
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) GetUsersWithLatestTweetDate(ctx context.Context) (map[string]time.Time, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.checkpoints, nil
}

func (f *fakeBackend) SaveUserTweets(ctx context.Context, cp types.Checkpoint, tweets []*types.EnrichedTweet) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.saves = append(f.saves, cp)
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	return f.saveCount, nil
}

var _ = Describe("Composite", func() {
	var (
		ctx context.Context
		cp  types.Checkpoint
	)

	BeforeEach(func() {
		ctx = context.Background()
		cp = types.Checkpoint{AccountID: "carol", LatestTweetAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	})

	It("rejects an empty backend list", func() {
		_, err := NewComposite(nil)
		Expect(err).To(MatchError(ErrNoBackends))
	})

	Describe("checkpoint reads", func() {
		It("merges per account by maximum", func() {
			a := &fakeBackend{name: "a", checkpoints: map[string]time.Time{
				"carol": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				"dave":  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			}}
			b := &fakeBackend{name: "b", checkpoints: map[string]time.Time{
				"carol": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			}}
			composite, err := NewComposite([]Repository{a, b})
			Expect(err).ToNot(HaveOccurred())

			merged, err := composite.GetUsersWithLatestTweetDate(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(merged).To(HaveLen(2))
			Expect(merged["carol"]).To(Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
			Expect(merged["dave"]).To(Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
		})

		It("fails when any backend fails", func() {
			a := &fakeBackend{name: "a", checkpoints: map[string]time.Time{"carol": time.Now()}}
			b := &fakeBackend{name: "b", readErr: errors.New("connection refused")}
			composite, err := NewComposite([]Repository{a, b})
			Expect(err).ToNot(HaveOccurred())

			_, err = composite.GetUsersWithLatestTweetDate(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("backend b"))
		})
	})

	Describe("writes", func() {
		It("broadcasts to every backend", func() {
			a := &fakeBackend{name: "a", saveCount: 3}
			b := &fakeBackend{name: "b", saveCount: 3}
			composite, err := NewComposite([]Repository{a, b})
			Expect(err).ToNot(HaveOccurred())

			count, err := composite.SaveUserTweets(ctx, cp, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(3))
			Expect(a.saves).To(HaveLen(1))
			Expect(b.saves).To(HaveLen(1))
		})

		It("lets the others settle when one backend fails", func() {
			failures := 0
			a := &fakeBackend{name: "a", saveErr: errors.New("disk full")}
			b := &fakeBackend{name: "b", saveCount: 2}
			composite, err := NewComposite([]Repository{a, b},
				WithWriteErrorHook(func() { failures++ }))
			Expect(err).ToNot(HaveOccurred())

			count, err := composite.SaveUserTweets(ctx, cp, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(2))
			Expect(b.saves).To(HaveLen(1))
			Expect(failures).To(Equal(1))
		})

		It("fails only when every backend fails", func() {
			a := &fakeBackend{name: "a", saveErr: errors.New("disk full")}
			b := &fakeBackend{name: "b", saveErr: errors.New("connection refused")}
			composite, err := NewComposite([]Repository{a, b})
			Expect(err).ToNot(HaveOccurred())

			_, err = composite.SaveUserTweets(ctx, cp, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("all backends failed"))
		})
	})
})
