package hooking

import (
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LogHook", func() {
	It("should log the position, item, and detail", func() {
		logger, recorded := test.NewNullLogger()
		logger.SetLevel(logrus.TraceLevel)

		base := &HookableBase{}
		base.AcceptHook(NewLogHook(logger, logrus.TraceLevel))

		base.InvokeHook(HookCtx{
			Domain: base,
			Pos:    &HookPos{Name: "Packet Dropped"},
			Item:   42,
			Detail: "buffer full",
		})

		entry := recorded.LastEntry()
		Expect(entry).NotTo(BeNil())
		Expect(entry.Level).To(Equal(logrus.TraceLevel))
		Expect(entry.Message).To(Equal("Packet Dropped"))
		Expect(entry.Data).To(HaveKeyWithValue("item", 42))
		Expect(entry.Data).To(HaveKeyWithValue("detail", "buffer full"))
	})

	It("should respect the logger level", func() {
		logger, recorded := test.NewNullLogger()
		logger.SetLevel(logrus.InfoLevel)

		NewLogHook(logger, logrus.DebugLevel).Func(HookCtx{
			Pos: &HookPos{Name: "Tick Completed"},
		})

		Expect(recorded.AllEntries()).To(BeEmpty())
	})
})
