package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("HookableBase", func() {
	var (
		base    *HookableBase
		posA    *HookPos
		posB    *HookPos
		invoked []string
	)

	BeforeEach(func() {
		base = &HookableBase{}
		posA = &HookPos{Name: "A"}
		posB = &HookPos{Name: "B"}
		invoked = nil
	})

	It("should invoke hooks in registration order", func() {
		base.AcceptHook(NewFuncHook(func(ctx HookCtx) {
			invoked = append(invoked, "first:"+ctx.Pos.Name)
		}))
		base.AcceptHook(NewFuncHook(func(ctx HookCtx) {
			invoked = append(invoked, "second:"+ctx.Pos.Name)
		}))

		base.InvokeHook(HookCtx{Pos: posA})

		Expect(base.NumHooks()).To(Equal(2))
		Expect(invoked).To(Equal([]string{"first:A", "second:A"}))
	})

	It("should panic on duplicated hook", func() {
		hook := NewFuncHook(func(HookCtx) {})
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
		Expect(base.Hooks()).To(HaveLen(1))
	})

	It("should filter by position", func() {
		hook := NewFuncHook(func(ctx HookCtx) {
			invoked = append(invoked, ctx.Pos.Name)
		})
		base.AcceptHook(PosFilter(hook, posB))

		base.InvokeHook(HookCtx{Pos: posA})
		base.InvokeHook(HookCtx{Pos: posB})
		base.InvokeHook(HookCtx{Pos: posA})

		Expect(invoked).To(Equal([]string{"B"}))
	})
})
