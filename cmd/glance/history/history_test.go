package historycmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	historycmder "github.com/glancelabs/glance/cmd/glance/history"
	"github.com/glancelabs/glance/pkg/assistant"
	"github.com/glancelabs/glance/pkg/store"
)

func newCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := historycmder.NewHistoryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.PersistentFlags().String("glance-dir", "", "directory containing glance state")
	return cmd, buf
}

var _ = Describe("NewHistoryCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := historycmder.NewHistoryCmd()
		Expect(cmd.Use).To(Equal("history [session-id]"))
	})

	It("registers the limit and sqlite flags", func() {
		cmd := historycmder.NewHistoryCmd()
		Expect(cmd.Flags().Lookup("limit")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("sqlite")).NotTo(BeNil())
	})

	It("rejects more than one argument", func() {
		cmd, _ := newCmd()
		cmd.SetArgs([]string{"one", "two"})
		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("History command execution", func() {
	var (
		glanceDir string
		dbPath    string
	)

	BeforeEach(func() {
		glanceDir = filepath.Join(GinkgoT().TempDir(), ".glance")
		Expect(os.MkdirAll(glanceDir, 0o755)).To(Succeed())
		dbPath = filepath.Join(glanceDir, "glance.db")

		GinkgoT().Setenv("GLANCE_SQLITE", "")
		GinkgoT().Setenv("GLANCE_STORAGE_SQLITE_PATH", "")
	})

	// seedSession creates one ended session with a single recorded turn.
	seedSession := func(name, question, answer string, tokens int64) store.Session {
		st, err := store.New(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer st.Close()

		ctx := context.Background()
		sess, err := st.StartSession(ctx, name)
		Expect(err).NotTo(HaveOccurred())

		turn := assistant.NewTurn(question, assistant.PlainReply(answer))
		Expect(st.RecordTurn(ctx, sess.ID, turn)).To(Succeed())

		if tokens > 0 {
			Expect(st.AddUsage(ctx, sess.ID, tokens)).To(Succeed())
		}
		Expect(st.EndSession(ctx, sess.ID)).To(Succeed())

		return sess
	}

	execute := func(args ...string) (*bytes.Buffer, error) {
		cmd, buf := newCmd()
		cmd.SetArgs(append([]string{"--glance-dir", glanceDir}, args...))
		return buf, cmd.Execute()
	}

	It("prints a hint when no sessions exist", func() {
		buf, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("No sessions recorded yet"))
	})

	It("lists sessions newest first with short IDs and counts", func() {
		older := seedSession("ask", "older question", "older answer", 10)
		newer := seedSession("overlay", "newer question", "newer answer", 25)

		buf, err := execute()
		Expect(err).NotTo(HaveOccurred())

		out := buf.String()
		Expect(out).To(ContainSubstring("Sessions"))
		Expect(out).To(ContainSubstring(older.ID[:8]))
		Expect(out).To(ContainSubstring(newer.ID[:8]))
		Expect(out).To(ContainSubstring("(1 turns, 10 tokens)"))
		Expect(out).To(ContainSubstring("(1 turns, 25 tokens)"))

		// Newest session appears before the older one.
		Expect(bytes.Index(buf.Bytes(), []byte(newer.ID[:8]))).
			To(BeNumerically("<", bytes.Index(buf.Bytes(), []byte(older.ID[:8]))))
	})

	It("honors the limit flag", func() {
		seedSession("alpha", "q", "a", 0)
		seedSession("beta", "q", "a", 0)
		seedSession("gamma", "q", "a", 0)

		buf, err := execute("--limit", "2")
		Expect(err).NotTo(HaveOccurred())

		out := buf.String()
		Expect(out).To(ContainSubstring("gamma"))
		Expect(out).To(ContainSubstring("beta"))
		Expect(out).NotTo(ContainSubstring("alpha"))
	})

	It("replays a session by full ID", func() {
		sess := seedSession("ask", "what broke?", "The listener never started", 15)

		buf, err := execute(sess.ID)
		Expect(err).NotTo(HaveOccurred())

		out := buf.String()
		Expect(out).To(ContainSubstring("Session:"))
		Expect(out).To(ContainSubstring("what broke?"))
		Expect(out).To(ContainSubstring("listener never started"))
		Expect(out).To(ContainSubstring("Tokens:"))
	})

	It("replays a session by short prefix", func() {
		sess := seedSession("ask", "prefix lookup?", "Found it", 0)

		buf, err := execute(sess.ID[:8])
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("prefix lookup?"))
	})

	It("errors on an unknown session ID", func() {
		seedSession("ask", "q", "a", 0)

		_, err := execute("ffffffff")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`no session found matching "ffffffff"`))
	})
})
