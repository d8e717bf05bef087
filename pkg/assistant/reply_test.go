package assistant_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/glancelabs/glance/pkg/assistant"
)

var _ = Describe("ParseReply", func() {
	It("passes a well-formed reply through unchanged", func() {
		original := assistant.StructuredReply{
			Response: "Press the **Save** button.",
			CodeBlocks: []assistant.CodeBlock{
				{Language: "go", Code: `fmt.Println("hi")`, Description: "example"},
			},
			Links: []assistant.Link{
				{Title: "Docs", URL: "https://example.com/docs", Description: "reference"},
			},
			SuggestedQuestions: []string{"What does Save do?", "Where is the file stored?"},
		}

		raw, err := json.Marshal(original)
		Expect(err).NotTo(HaveOccurred())

		Expect(assistant.ParseReply(string(raw))).To(Equal(original))
	})

	It("recovers a JSON object wrapped in markdown fences", func() {
		raw := "```json\n{\"response\":\"use grep\",\"code_blocks\":[],\"links\":[],\"suggested_questions\":[]}\n```"

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal("use grep"))
		Expect(reply.CodeBlocks).To(BeEmpty())
	})

	It("recovers a JSON object wrapped in prose", func() {
		raw := `Sure, here you go: {"response":"restart the daemon","code_blocks":[],"links":[],"suggested_questions":["How do I check its status?"]} hope that helps`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal("restart the daemon"))
		Expect(reply.SuggestedQuestions).To(ConsistOf("How do I check its status?"))
	})

	It("recovers when string fields contain braces", func() {
		raw := `Here: {"response":"initialize with map[string]int{}","code_blocks":[{"language":"go","code":"m := map[string]int{\"a\": 1}"}],"links":[],"suggested_questions":[]}`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal("initialize with map[string]int{}"))
		Expect(reply.CodeBlocks).To(HaveLen(1))
	})

	It("degrades plain text to a reply carrying the raw output", func() {
		raw := "I can't help with that."

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal(raw))
		Expect(reply.CodeBlocks).NotTo(BeNil())
		Expect(reply.CodeBlocks).To(BeEmpty())
		Expect(reply.Links).NotTo(BeNil())
		Expect(reply.Links).To(BeEmpty())
		Expect(reply.SuggestedQuestions).NotTo(BeNil())
		Expect(reply.SuggestedQuestions).To(BeEmpty())
	})

	It("degrades a JSON object that lacks the response key", func() {
		raw := `{"answer":"wrong shape","code_blocks":[]}`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal(raw))
		Expect(reply.CodeBlocks).To(BeEmpty())
	})

	It("degrades JSON that is not an object", func() {
		raw := `["response", "in", "an", "array"]`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal(raw))
	})

	It("normalizes null collections to empty slices", func() {
		raw := `{"response":"ok","code_blocks":null,"links":null,"suggested_questions":null}`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal("ok"))
		Expect(reply.CodeBlocks).NotTo(BeNil())
		Expect(reply.Links).NotTo(BeNil())
		Expect(reply.SuggestedQuestions).NotTo(BeNil())
	})

	It("fills collections the model left out entirely", func() {
		raw := `{"response":"just text"}`

		reply := assistant.ParseReply(raw)
		Expect(reply.Response).To(Equal("just text"))
		Expect(reply.CodeBlocks).NotTo(BeNil())
		Expect(reply.Links).NotTo(BeNil())
		Expect(reply.SuggestedQuestions).NotTo(BeNil())
	})
})

var _ = Describe("PlainReply", func() {
	It("wraps text with empty collections", func() {
		reply := assistant.PlainReply("hello")
		Expect(reply.Response).To(Equal("hello"))
		Expect(reply.CodeBlocks).NotTo(BeNil())
		Expect(reply.Links).NotTo(BeNil())
		Expect(reply.SuggestedQuestions).NotTo(BeNil())
	})
})

var _ = Describe("StructuredReply Markdown", func() {
	It("renders the response alone when there is nothing else", func() {
		reply := assistant.PlainReply("just text")
		Expect(reply.Markdown()).To(Equal("just text"))
	})

	It("appends code blocks as fenced markdown", func() {
		reply := assistant.StructuredReply{
			Response: "Two ways:",
			CodeBlocks: []assistant.CodeBlock{
				{Language: "go", Code: "a := 1", Description: "short form"},
				{Language: "go", Code: "var a int = 1"},
			},
		}

		md := reply.Markdown()
		Expect(md).To(ContainSubstring("Two ways:"))
		Expect(md).To(ContainSubstring("short form"))
		Expect(md).To(ContainSubstring("```go\na := 1\n```"))
		Expect(md).To(ContainSubstring("```go\nvar a int = 1\n```"))
	})

	It("lists links after the prose", func() {
		reply := assistant.StructuredReply{
			Response: "See the docs.",
			Links: []assistant.Link{
				{Title: "Docs", URL: "https://example.com", Description: "the manual"},
				{URL: "https://example.com/faq"},
			},
		}

		md := reply.Markdown()
		Expect(md).To(ContainSubstring("- [Docs](https://example.com): the manual"))
		Expect(md).To(ContainSubstring("- [https://example.com/faq](https://example.com/faq)"))
	})
})

var _ = Describe("NewTurn", func() {
	It("stamps the exchange with the current time", func() {
		turn := assistant.NewTurn("why?", assistant.PlainReply("because"))
		Expect(turn.Question).To(Equal("why?"))
		Expect(turn.Answer.Response).To(Equal("because"))
		Expect(turn.Timestamp.IsZero()).To(BeFalse())
	})
})
