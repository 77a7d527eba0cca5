// Package platform defines the hardware abstraction the kernel is built on:
// the interrupt-priority register, the eight software-interrupt pending
// bits, the periodic tick timer, the 64-bit free-running timebase counter,
// the critical-section primitive, and the MPU write/read predicate. §1 of
// the specification keeps all of this external to the kernel proper; the
// kernel only ever talks to a Platform value.
//
// Chip-specific register addresses, clock/PLL bring-up, and real MPU region
// programming are out of scope here (they belong to a target-specific
// implementation of this interface); SimPlatform is the in-process reference
// implementation used by tests and by any host tool that wants to exercise
// the kernel without real silicon.
package platform

// KernelPriority is the interrupt-priority level the scheduler's own tick
// runs at. Events may be configured at priorities 1..KernelPriority-1.
const KernelPriority uint8 = 12

// UnblockableTier is the highest priority a user event may request, reserved
// for tasks belonging to the OS process or the highest-numbered process.
const UnblockableTier = KernelPriority - 1

// NumSoftwareInterrupts is the number of hardware software-interrupt pending
// bits, one per configurable event.
const NumSoftwareInterrupts = 8

// TickVectorSlot is the bookkeeping slot SetVectorPriority uses to record the
// priority of the scheduler's own periodic tick. It does not alias any of
// the 0..NumSoftwareInterrupts-1 event slots.
const TickVectorSlot = 0xFF

// Platform is the hardware shim. Every method must be safe to call from
// whatever context the kernel's control flow reaches it from (ISR-level
// call or ordinary task call).
type Platform interface {
	// Priority returns the current interrupt-priority level.
	Priority() uint8
	// SetPriority sets the current interrupt-priority level and returns the
	// previous one. Used directly by the priority-ceiling service.
	SetPriority(level uint8) (previous uint8)

	// EnableInterrupts and DisableInterrupts toggle the external-interrupt
	// enable bit. DisableInterrupts reports whether interrupts were enabled
	// beforehand, so callers can restore it exactly.
	EnableInterrupts()
	DisableInterrupts() (wasEnabled bool)

	// CriticalSection disables external interrupts and returns a closure
	// that restores the enable bit to its value at the time of the call.
	// Reentrant: nesting CriticalSection calls and invoking the restore
	// closures in reverse order round-trips correctly.
	CriticalSection() (restore func())

	// Timebase returns the free-running 64-bit hardware tick counter.
	Timebase() uint64

	// StartPeriodicTimer arms the 1 ms scheduler timer. onTick is the
	// callback a real target would invoke from the timer's ISR; SimPlatform
	// retains it for introspection but does not fire it on its own — tests
	// drive simulated time deterministically by calling kernel.Kernel.Tick
	// directly (see platform/sim.go).
	StartPeriodicTimer(stepMS uint32, onTick func())
	StopPeriodicTimer()

	// PendSoftware sets the pending bit for a software-interrupt slot
	// (0..NumSoftwareInterrupts-1) and reports whether it was already set.
	PendSoftware(slot uint8) (wasAlreadyPending bool)
	// ClearSoftware clears a slot's pending bit, re-arming it.
	ClearSoftware(slot uint8)
	// SoftwarePending reports a slot's current pending bit.
	SoftwarePending(slot uint8) bool

	// SetVectorPriority programs the per-vector priority-select register for
	// a software-interrupt slot (or TickVectorSlot for the scheduler tick).
	SetVectorPriority(slot uint8, level uint8)

	// CheckUserWrite and CheckUserRead are the MPU predicates: "is this
	// address range writable/readable by process pid?". The kernel must
	// consult one of these before a handler dereferences a user-supplied
	// pointer argument (§5).
	CheckUserWrite(pid uint8, addr, length uint32) bool
	CheckUserRead(pid uint8, addr, length uint32) bool
}
