package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// newTestPool creates a single-worker pool. Callers should Close() to drain
// enqueued jobs before asserting side effects.
func newTestPool(queueSize uint) *Pool {
	p, err := NewPool(&Config{
		QueueSize: queueSize,
		Logger:    zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Pool", func() {
	Describe("Enqueue", func() {
		It("returns true and runs the job when the queue has capacity", func() {
			p := newTestPool(4)

			var ran atomic.Bool
			ok := p.Enqueue(Job{
				Name: "record turn",
				Fn: func(_ context.Context) error {
					ran.Store(true)
					return nil
				},
			})
			Expect(ok).To(BeTrue())

			p.Close()
			Expect(ran.Load()).To(BeTrue())
		})

		It("drops the job and returns false when the queue is full", func() {
			p := newTestPool(1)

			// Park the worker so the queue stays occupied.
			release := make(chan struct{})
			ok := p.Enqueue(Job{Name: "parked", Fn: func(_ context.Context) error {
				<-release
				return nil
			}})
			Expect(ok).To(BeTrue())

			// Fill the single queue slot, then overflow it.
			Eventually(func() bool {
				return p.Enqueue(Job{Name: "filler", Fn: func(_ context.Context) error { return nil }})
			}).Should(BeTrue())

			dropped := false
			for i := 0; i < 10; i++ {
				if !p.Enqueue(Job{Name: "overflow", Fn: func(_ context.Context) error { return nil }}) {
					dropped = true
					break
				}
			}
			Expect(dropped).To(BeTrue())

			close(release)
			p.Close()
		})
	})

	Describe("Close", func() {
		It("drains queued jobs before returning", func() {
			p := newTestPool(16)

			var mu sync.Mutex
			var order []string
			for _, name := range []string{"a", "b", "c"} {
				name := name
				Expect(p.Enqueue(Job{Name: name, Fn: func(_ context.Context) error {
					mu.Lock()
					order = append(order, name)
					mu.Unlock()
					return nil
				}})).To(BeTrue())
			}

			p.Close()

			mu.Lock()
			defer mu.Unlock()
			Expect(order).To(Equal([]string{"a", "b", "c"}))
		})
	})

	Describe("worker", func() {
		It("keeps processing after a job fails", func() {
			p := newTestPool(4)

			var ran atomic.Bool
			Expect(p.Enqueue(Job{Name: "boom", Fn: func(_ context.Context) error {
				return errors.New("disk full")
			}})).To(BeTrue())
			Expect(p.Enqueue(Job{Name: "after", Fn: func(_ context.Context) error {
				ran.Store(true)
				return nil
			}})).To(BeTrue())

			p.Close()
			Expect(ran.Load()).To(BeTrue())
		})

		It("ignores jobs without a function", func() {
			p := newTestPool(4)
			Expect(p.Enqueue(Job{Name: "empty"})).To(BeTrue())
			p.Close()
		})
	})

	Describe("NewPool", func() {
		It("applies defaults for a nil config", func() {
			p, err := NewPool(nil)
			Expect(err).NotTo(HaveOccurred())
			p.Close()
		})
	})
})
