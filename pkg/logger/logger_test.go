package logger_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/glancelabs/glance/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("NewLoggerWithWriters", func() {
		It("writes info output to the provided writer", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("hello", zap.String("key", "value"))

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(true, &buf)
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("supports multiple writers", func() {
			var buf1, buf2 bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf1, &buf2)
			l.Info("multi")

			Expect(buf1.String()).To(ContainSubstring("multi"))
			Expect(buf2.String()).To(ContainSubstring("multi"))
		})
	})

	Describe("NewLogger", func() {
		It("creates a logger without panicking", func() {
			Expect(func() {
				l := logger.NewLogger(false)
				l.Info("stdout logger")
			}).NotTo(Panic())
		})
	})

	Describe("NewFileLogger", func() {
		It("writes to the log file and not to the terminal", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "overlay.log")

			l := logger.NewFileLogger(false, path)
			l.Info("file only")
			Expect(l.Sync()).To(Succeed())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("file only"))
		})

		It("filters debug when not enabled", func() {
			dir := GinkgoT().TempDir()
			path := filepath.Join(dir, "overlay.log")

			l := logger.NewFileLogger(false, path)
			l.Debug("hidden")
			_ = l.Sync()

			data, _ := os.ReadFile(path)
			Expect(string(data)).NotTo(ContainSubstring("hidden"))
		})
	})
})
