package assistant_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/glancelabs/glance/pkg/assistant"
	"github.com/glancelabs/glance/pkg/capture"
	"github.com/glancelabs/glance/pkg/vision"
)

type stubAsker struct {
	mu        sync.Mutex
	calls     int
	lastPrior []assistant.Turn
	lastShot  capture.Shot

	block chan struct{} // when non-nil, Ask waits for close or ctx
	reply assistant.StructuredReply
	usage vision.Usage
	err   error
}

func (s *stubAsker) Ask(ctx context.Context, question string, shot capture.Shot, prior []assistant.Turn) (assistant.StructuredReply, vision.Usage, error) {
	s.mu.Lock()
	s.calls++
	s.lastPrior = prior
	s.lastShot = shot
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return assistant.StructuredReply{}, vision.Usage{}, ctx.Err()
		}
	}

	return s.reply, s.usage, s.err
}

func (s *stubAsker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubShotter struct {
	mu    sync.Mutex
	calls int
	shot  capture.Shot
	err   error
}

func (s *stubShotter) Capture(_ context.Context) (capture.Shot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return capture.Shot{}, s.err
	}
	return s.shot, nil
}

func (s *stubShotter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ = Describe("Runner", func() {
	var (
		asker   *stubAsker
		shotter *stubShotter
		runner  *assistant.Runner
	)

	BeforeEach(func() {
		asker = &stubAsker{reply: assistant.PlainReply("answer")}
		shotter = &stubShotter{shot: capture.Shot{PNG: []byte{1, 2, 3}}}
		runner = assistant.NewRunner(asker, shotter, nil)
	})

	AfterEach(func() {
		runner.Close()
	})

	It("delivers exactly one outcome with the submitted generation", func() {
		ch, gen, err := runner.Submit(context.Background(), assistant.Query{Question: "why?"})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen).To(Equal(uint64(1)))

		var outcome assistant.Outcome
		Eventually(ch, time.Second).Should(Receive(&outcome))
		Expect(outcome.Gen).To(Equal(uint64(1)))
		Expect(outcome.Question).To(Equal("why?"))
		Expect(outcome.Reply.Response).To(Equal("answer"))
		Expect(outcome.Err).To(BeNil())
	})

	It("captures the screen off the submitting goroutine when asked to", func() {
		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "q", Screenshot: true})
		Expect(err).NotTo(HaveOccurred())

		Eventually(ch, time.Second).Should(Receive())
		Expect(shotter.Calls()).To(Equal(1))
		Expect(asker.lastShot.PNG).To(Equal([]byte{1, 2, 3}))
	})

	It("skips capture when the query opts out", func() {
		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "q"})
		Expect(err).NotTo(HaveOccurred())

		Eventually(ch, time.Second).Should(Receive())
		Expect(shotter.Calls()).To(BeZero())
	})

	It("passes the prior-turn snapshot through untouched", func() {
		prior := []assistant.Turn{assistant.NewTurn("q1", assistant.PlainReply("a1"))}

		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "q2", Prior: prior})
		Expect(err).NotTo(HaveOccurred())

		Eventually(ch, time.Second).Should(Receive())
		Expect(asker.lastPrior).To(HaveLen(1))
		Expect(asker.lastPrior[0].Question).To(Equal("q1"))
	})

	It("surfaces capture failure without calling the model", func() {
		shotter.err = capture.ErrUnavailable

		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "q", Screenshot: true})
		Expect(err).NotTo(HaveOccurred())

		var outcome assistant.Outcome
		Eventually(ch, time.Second).Should(Receive(&outcome))
		Expect(errors.Is(outcome.Err, assistant.ErrCaptureUnavailable)).To(BeTrue())
		Expect(asker.Calls()).To(BeZero())
	})

	It("rejects a second submit while one is in flight", func() {
		asker.block = make(chan struct{})

		first, _, err := runner.Submit(context.Background(), assistant.Query{Question: "slow"})
		Expect(err).NotTo(HaveOccurred())

		_, _, err = runner.Submit(context.Background(), assistant.Query{Question: "eager"})
		Expect(errors.Is(err, assistant.ErrBusy)).To(BeTrue())

		close(asker.block)
		Eventually(first, time.Second).Should(Receive())
	})

	It("accepts a new submit as soon as the outcome is delivered", func() {
		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "one"})
		Expect(err).NotTo(HaveOccurred())
		Eventually(ch, time.Second).Should(Receive())

		ch2, gen2, err := runner.Submit(context.Background(), assistant.Query{Question: "two"})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen2).To(Equal(uint64(2)))
		Eventually(ch2, time.Second).Should(Receive())
	})

	It("reports cancellation on the outcome when the context is cut", func() {
		asker.block = make(chan struct{})
		defer close(asker.block)

		ctx, cancel := context.WithCancel(context.Background())
		ch, gen, err := runner.Submit(ctx, assistant.Query{Question: "doomed"})
		Expect(err).NotTo(HaveOccurred())

		cancel()

		var outcome assistant.Outcome
		Eventually(ch, time.Second).Should(Receive(&outcome))
		Expect(outcome.Gen).To(Equal(gen))
		Expect(errors.Is(outcome.Err, context.Canceled)).To(BeTrue())
	})

	It("stamps increasing generations across submissions", func() {
		ch1, gen1, err := runner.Submit(context.Background(), assistant.Query{Question: "a"})
		Expect(err).NotTo(HaveOccurred())
		Eventually(ch1, time.Second).Should(Receive())

		ch2, gen2, err := runner.Submit(context.Background(), assistant.Query{Question: "b"})
		Expect(err).NotTo(HaveOccurred())
		Eventually(ch2, time.Second).Should(Receive())

		Expect(gen2).To(BeNumerically(">", gen1))
	})
})

var _ = Describe("Runner Close", func() {
	It("waits for the in-flight query to finish", func() {
		asker := &stubAsker{reply: assistant.PlainReply("late"), block: make(chan struct{})}
		runner := assistant.NewRunner(asker, nil, nil)

		ch, _, err := runner.Submit(context.Background(), assistant.Query{Question: "slow"})
		Expect(err).NotTo(HaveOccurred())

		closed := make(chan struct{})
		go func() {
			runner.Close()
			close(closed)
		}()

		Consistently(closed, 100*time.Millisecond).ShouldNot(BeClosed())

		close(asker.block)
		Eventually(closed, time.Second).Should(BeClosed())
		Eventually(ch, time.Second).Should(Receive())
	})
})
