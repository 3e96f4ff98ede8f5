package pool

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tweetvault/tweetvault/pkg/client"
)

// fakeClient records which credential served each call and fails according to
// the script installed per credential.
type fakeClient struct {
	credential string
	fail       func(credential string) error
	calls      *[]string
}

func (f *fakeClient) FetchTimeline(ctx context.Context, accountID, cursor string, pageSize int) ([]byte, error) {
	*f.calls = append(*f.calls, f.credential)
	if err := f.fail(f.credential); err != nil {
		return nil, err
	}
	return []byte("page:" + f.credential), nil
}

func rateLimited() error {
	return fmt.Errorf("fetch: %w", client.ErrRateLimited)
}

var _ = Describe("Pool", func() {
	var (
		calls     []string
		built     []string
		fail      func(credential string) error
		rotations int
	)

	newPool := func(credentials ...string) *Pool {
		p, err := New(credentials, nil,
			WithFactory(func(credential string) (Client, error) {
				built = append(built, credential)
				return &fakeClient{credential: credential, fail: func(c string) error { return fail(c) }, calls: &calls}, nil
			}),
			WithRotationHook(func() { rotations++ }),
		)
		Expect(err).ToNot(HaveOccurred())
		return p
	}

	fetch := func(p *Pool) ([]byte, error) {
		return p.Run(context.Background(), func(ctx context.Context, c Client) ([]byte, error) {
			return c.FetchTimeline(ctx, "acct", "", 40)
		})
	}

	BeforeEach(func() {
		calls = nil
		built = nil
		rotations = 0
		fail = func(string) error { return nil }
	})

	It("rejects an empty credential list", func() {
		_, err := New(nil, nil)
		Expect(err).To(MatchError(ErrNoCredentials))
	})

	It("returns the task result on success", func() {
		p := newPool("k1", "k2")
		out, err := fetch(p)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(out)).To(Equal("page:k1"))
		Expect(rotations).To(Equal(0))
	})

	It("constructs one client per credential, lazily, and reuses it", func() {
		p := newPool("k1", "k2")
		_, err := fetch(p)
		Expect(err).ToNot(HaveOccurred())
		_, err = fetch(p)
		Expect(err).ToNot(HaveOccurred())
		Expect(built).To(Equal([]string{"k1"}))
	})

	It("rotates on rate limiting and succeeds on the next credential", func() {
		fail = func(credential string) error {
			if credential == "k1" {
				return rateLimited()
			}
			return nil
		}
		p := newPool("k1", "k2", "k3")
		out, err := fetch(p)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(out)).To(Equal("page:k2"))
		Expect(calls).To(Equal([]string{"k1", "k2"}))
		Expect(rotations).To(Equal(1))
	})

	It("exhausts after exactly K rotations when every credential is rate limited", func() {
		fail = func(string) error { return rateLimited() }
		p := newPool("k1", "k2", "k3")
		_, err := fetch(p)
		Expect(err).To(MatchError(ErrPoolExhausted))
		Expect(calls).To(Equal([]string{"k1", "k2", "k3"}))
		Expect(rotations).To(Equal(3))
	})

	It("propagates non-rate-limit errors immediately with zero rotations", func() {
		authErr := fmt.Errorf("fetch: %w", client.ErrAuth)
		fail = func(string) error { return authErr }
		p := newPool("k1", "k2", "k3")
		_, err := fetch(p)
		Expect(errors.Is(err, client.ErrAuth)).To(BeTrue())
		Expect(calls).To(HaveLen(1))
		Expect(rotations).To(Equal(0))
	})

	It("keeps the rotated index across calls", func() {
		fail = func(credential string) error {
			if credential == "k1" {
				return rateLimited()
			}
			return nil
		}
		p := newPool("k1", "k2")
		_, err := fetch(p)
		Expect(err).ToNot(HaveOccurred())

		fail = func(string) error { return nil }
		out, err := fetch(p)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(out)).To(Equal("page:k2"))
	})

	It("stops when the context is cancelled", func() {
		p := newPool("k1")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Run(ctx, func(ctx context.Context, c Client) ([]byte, error) {
			return c.FetchTimeline(ctx, "acct", "", 40)
		})
		Expect(err).To(MatchError(context.Canceled))
		Expect(calls).To(BeEmpty())
	})
})
