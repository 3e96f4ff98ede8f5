package syncer

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tweetvault/tweetvault/api/types"
)

var _ = Describe("RunCache", func() {
	It("stores and retrieves runs", func() {
		cache := NewRunCache(10, time.Hour)
		cache.Set("run-1", types.SyncRun{UUID: "run-1", Status: types.RunStatusRunning})

		run, ok := cache.Get("run-1")
		Expect(ok).To(BeTrue())
		Expect(run.Status).To(Equal(types.RunStatusRunning))

		_, ok = cache.Get("run-2")
		Expect(ok).To(BeFalse())
	})

	It("updates an existing run in place", func() {
		cache := NewRunCache(10, time.Hour)
		cache.Set("run-1", types.SyncRun{UUID: "run-1", Status: types.RunStatusRunning})
		cache.Set("run-1", types.SyncRun{UUID: "run-1", Status: types.RunStatusDone})

		run, ok := cache.Get("run-1")
		Expect(ok).To(BeTrue())
		Expect(run.Status).To(Equal(types.RunStatusDone))
		Expect(cache.Len()).To(Equal(1))
	})

	It("evicts the oldest run beyond the size limit", func() {
		cache := NewRunCache(3, time.Hour)
		for i := 1; i <= 4; i++ {
			uuid := fmt.Sprintf("run-%d", i)
			cache.Set(uuid, types.SyncRun{UUID: uuid})
		}

		Expect(cache.Len()).To(Equal(3))
		_, ok := cache.Get("run-1")
		Expect(ok).To(BeFalse())
		_, ok = cache.Get("run-4")
		Expect(ok).To(BeTrue())
	})

	It("expires aged-out runs on access", func() {
		cache := NewRunCache(10, 10*time.Millisecond)
		cache.Set("run-1", types.SyncRun{UUID: "run-1"})

		Eventually(func() bool {
			_, ok := cache.Get("run-1")
			return ok
		}, "200ms", "10ms").Should(BeFalse())
	})
})
