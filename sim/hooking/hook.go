// Package hooking lets observers attach to the points where the simulation
// changes state.
package hooking

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// FuncHook adapts a plain function to the Hook interface. Register it by
// pointer so that duplicate detection can compare hooks.
type FuncHook struct {
	F func(ctx HookCtx)
}

// NewFuncHook wraps f into a Hook.
func NewFuncHook(f func(ctx HookCtx)) *FuncHook {
	return &FuncHook{F: f}
}

// Func calls the wrapped function.
func (h *FuncHook) Func(ctx HookCtx) {
	h.F(ctx)
}

// PosFilter wraps a hook so that it only fires at the given positions.
func PosFilter(hook Hook, positions ...*HookPos) Hook {
	return &posFilteredHook{hook: hook, positions: positions}
}

type posFilteredHook struct {
	hook      Hook
	positions []*HookPos
}

func (h *posFilteredHook) Func(ctx HookCtx) {
	for _, pos := range h.positions {
		if pos == ctx.Pos {
			h.hook.Func(ctx)
			return
		}
	}
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook register a hook. Registering the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, registered := range h.hookList {
		if registered == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
