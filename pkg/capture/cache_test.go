package capture

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeCapturer struct {
	calls int
	shot  Shot
	err   error
}

func (f *fakeCapturer) Capture(_ context.Context) (Shot, error) {
	f.calls++
	if f.err != nil {
		return Shot{}, f.err
	}
	return f.shot, nil
}

var _ = Describe("Cache", func() {
	var (
		inner *fakeCapturer
		cache *Cache
		clock time.Time
	)

	BeforeEach(func() {
		inner = &fakeCapturer{shot: Shot{PNG: []byte{0x89, 0x50}, Width: 100, Height: 50}}
		cache = Cached(inner, time.Second)
		clock = time.Now()
		cache.now = func() time.Time { return clock }
	})

	It("serves the cached frame within the TTL", func() {
		first, err := cache.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())

		clock = clock.Add(500 * time.Millisecond)

		second, err := cache.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(second.PNG).To(Equal(first.PNG))
		Expect(inner.calls).To(Equal(1))
	})

	It("captures a fresh frame once the TTL expires", func() {
		_, err := cache.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())

		clock = clock.Add(time.Second)

		_, err = cache.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.calls).To(Equal(2))
	})

	It("does not cache failures", func() {
		inner.err = ErrUnavailable

		_, err := cache.Capture(context.Background())
		Expect(errors.Is(err, ErrUnavailable)).To(BeTrue())

		_, err = cache.Capture(context.Background())
		Expect(errors.Is(err, ErrUnavailable)).To(BeTrue())
		Expect(inner.calls).To(Equal(2))
	})

	It("never serves a stale frame after a failed refresh", func() {
		_, err := cache.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())

		clock = clock.Add(2 * time.Second)
		inner.err = ErrUnavailable

		_, err = cache.Capture(context.Background())
		Expect(errors.Is(err, ErrUnavailable)).To(BeTrue())
	})

	It("applies the default TTL when given a non-positive one", func() {
		c := Cached(inner, 0)
		Expect(c.ttl).To(Equal(DefaultTTL))
	})
})

var _ = Describe("Shot", func() {
	It("reports empty when it has no data", func() {
		Expect(Shot{}.Empty()).To(BeTrue())
		Expect(Shot{PNG: []byte{1}}.Empty()).To(BeFalse())
	})

	It("encodes the PNG bytes as base64", func() {
		shot := Shot{PNG: []byte("png-bytes")}
		Expect(shot.Base64()).To(Equal("cG5nLWJ5dGVz"))
	})
})
