package dbpathcmder

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	BeforeEach(func() {
		GinkgoT().Setenv("GLANCE_SQLITE", "")
		GinkgoT().Setenv("GLANCE_STORAGE_SQLITE_PATH", "")
	})

	It("prefers the explicit override", func() {
		GinkgoT().Setenv("GLANCE_SQLITE", "/tmp/env.db")

		path, err := Resolve("/tmp/explicit.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/explicit.db"))
	})

	It("falls back to GLANCE_SQLITE", func() {
		GinkgoT().Setenv("GLANCE_SQLITE", "/tmp/env.db")

		path, err := Resolve("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/env.db"))
	})

	It("honors GLANCE_STORAGE_SQLITE_PATH after GLANCE_SQLITE", func() {
		GinkgoT().Setenv("GLANCE_SQLITE", "/tmp/short.db")
		GinkgoT().Setenv("GLANCE_STORAGE_SQLITE_PATH", "/tmp/long.db")

		path, err := Resolve("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/short.db"))

		GinkgoT().Setenv("GLANCE_SQLITE", "")
		path, err = Resolve("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/long.db"))
	})

	It("defaults to glance.db in the dot directory", func() {
		tmpDir := GinkgoT().TempDir()

		path, err := Resolve("", tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(tmpDir, "glance.db")))
	})

	It("ignores whitespace-only overrides", func() {
		tmpDir := GinkgoT().TempDir()

		path, err := Resolve("   ", tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(tmpDir, "glance.db")))
	})
})

var _ = Describe("DBPath Command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		GinkgoT().Setenv("GLANCE_SQLITE", "")
		GinkgoT().Setenv("GLANCE_STORAGE_SQLITE_PATH", "")
	})

	It("creates a command with expected properties", func() {
		cmd := NewDBPathCmd()
		Expect(cmd.Use).To(Equal("dbpath"))
		Expect(cmd.Short).NotTo(BeEmpty())
	})

	It("prints the resolved path", func() {
		cmd := NewDBPathCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.PersistentFlags().String("glance-dir", "", "Override path to .glance/ directory")
		cmd.SetArgs([]string{"--glance-dir", tmpDir})

		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(out.String())).To(Equal(filepath.Join(tmpDir, "glance.db")))
	})

	It("fails with --must-exist when the file is missing", func() {
		cmd := NewDBPathCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.PersistentFlags().String("glance-dir", "", "Override path to .glance/ directory")
		cmd.SetArgs([]string{"--glance-dir", tmpDir, "--must-exist"})

		err := cmd.Execute()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no database at"))
	})

	It("passes --must-exist when the file is present", func() {
		dbPath := filepath.Join(tmpDir, "glance.db")
		Expect(os.WriteFile(dbPath, []byte("x"), 0o644)).To(Succeed())

		cmd := NewDBPathCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.PersistentFlags().String("glance-dir", "", "Override path to .glance/ directory")
		cmd.SetArgs([]string{"--glance-dir", tmpDir, "--must-exist"})

		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(out.String())).To(Equal(dbPath))
	})
})
