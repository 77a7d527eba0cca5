package kernel

import "sync"

// RunState is a process descriptor's lifecycle state. There are exactly two:
// a process starts Stopped, is released to Running once at the end of
// kernel init, and may later be suspended back to Stopped — a transition
// that never reverses at runtime.
type RunState uint8

const (
	Stopped RunState = iota
	Running
)

func (s RunState) String() string {
	if s == Running {
		return "Running"
	}
	return "Stopped"
}

// StackRegion is a process's stack memory, [Start, End), as provided by the
// link map. Both ends must be 8-byte aligned; the size must fall in
// [MinStackSize, MaxStackSize] and be a multiple of 8.
type StackRegion struct {
	Start, End uint32
}

func (s StackRegion) size() uint32 { return s.End - s.Start }

func (s StackRegion) validate() error {
	if s.End <= s.Start {
		return ErrStackSizeOutOfBounds
	}
	if s.Start%StackAlign != 0 || s.End%StackAlign != 0 {
		return ErrStackNotAligned
	}
	size := s.size()
	if size < MinStackSize || size > MaxStackSize {
		return ErrStackSizeOutOfBounds
	}
	if size%8 != 0 {
		return ErrStackSizeNotMultipleOf8
	}
	return nil
}

// stackFillWord is the sentinel init_kernel fills an unused stack with, so a
// post-mortem dump can tell high-water-mark usage from untouched memory.
const stackFillWord uint32 = 0xA5A5_A5A5

// stackGuardWords sit at the lowest address of every process stack after
// init; a corrupted first word is the cheapest possible stack-overflow
// tripwire.
var stackGuardWords = [4]uint32{0, 0xFFFF_FFFF, 0xFFFF_FFFF, 0xFFFF_FFFF}

// ProcessDescriptor is the static per-process record spec §3 defines. Index
// 0 is the OS/supervisor; 1..NProc are application processes.
type ProcessDescriptor struct {
	PID   int
	Stack StackRegion

	// Memory is a simulated backing store for Stack, used only so that
	// init's fill pattern and guard words are actually observable in tests
	// and in the debug dump; a real target's MPU owns the real RAM instead.
	Memory []uint32

	// UserSP is the saved user-mode stack pointer: the value to restore
	// when this process's next task resumes.
	UserSP uint32

	State RunState

	TotalAborts uint32
	CauseAborts [NumCauses]uint32
}

// ProcessTable owns the N_PROC+1 process descriptors and the suspend
// permission matrix. All mutation goes through its methods, which serialize
// access with a single mutex — on real hardware the same fields are written
// only by the kernel (init, suspend) and by the dispatcher (userSP) under a
// critical section or at the scheduler's own priority (§5).
type ProcessTable struct {
	mu    sync.Mutex
	procs [NProc + 1]ProcessDescriptor
	// permit[caller][target] grants caller the right to suspend target.
	permit [NProc + 1][NProc + 1]bool
}

// NewProcessTable validates every stack region and returns a process table
// with all processes Stopped. Stacks are not filled yet — that happens in
// InitKernel, which owns the full init ordering from §4.1.
func NewProcessTable(stacks [NProc + 1]StackRegion) (*ProcessTable, error) {
	for pid, s := range stacks {
		if err := s.validate(); err != nil {
			return nil, cfgErrf("new_process_table", "process %d: %v", pid, err)
		}
	}
	pt := &ProcessTable{}
	for pid := range stacks {
		pt.procs[pid] = ProcessDescriptor{PID: pid, Stack: stacks[pid], State: Stopped}
	}
	return pt, nil
}

// restore overwrites a process descriptor's lifecycle state and abort
// counters directly, bypassing the normal Suspend/Release/RecordAbort
// transitions. Used only by Kernel.RestoreForTest.
func (pt *ProcessTable) restore(pid int, state RunState, totalAborts uint32, causeAborts [NumCauses]uint32) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	d := &pt.procs[pid]
	d.State = state
	d.TotalAborts = totalAborts
	d.CauseAborts = causeAborts
}

func (pt *ProcessTable) descriptor(pid int) *ProcessDescriptor {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return &pt.procs[pid]
}

// initStacks fills every process's simulated stack with the sentinel fill
// word, plants the guard words at the lowest address, and sets the saved
// user SP to stack_end-16, matching init_kernel's description in §4.1.
//
// The original source's process-4 stack-end initializer bug noted in spec §9 (it
// reads another process's stack-end symbol) is NOT reproduced here: every
// process is initialized from its OWN StackRegion, by index. See DESIGN.md.
func (pt *ProcessTable) initStacks() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for pid := range pt.procs {
		p := &pt.procs[pid]
		words := int(p.Stack.size() / 4)
		p.Memory = make([]uint32, words)
		for i := range p.Memory {
			p.Memory[i] = stackFillWord
		}
		copy(p.Memory, stackGuardWords[:])
		p.UserSP = p.Stack.End - 16
	}
}

func (pt *ProcessTable) setRunning(pid int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.procs[pid].State = Running
}

// Suspend transitions pid Running->Stopped. Idempotent: calling it any
// number of times is equivalent to calling it once.
func (pt *ProcessTable) Suspend(pid int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.procs[pid].State = Stopped
}

// Release transitions pid Stopped->Running. Only valid before the scheduler
// starts; callers enforce that (kernel.ReleaseProcess).
func (pt *ProcessTable) Release(pid int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.procs[pid].State = Running
}

// IsSuspended reports whether pid is currently Stopped. Callable from user
// context (is_process_suspended).
func (pt *ProcessTable) IsSuspended(pid int) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.procs[pid].State == Stopped
}

// GrantPermission sets the (caller, target) suspend-permission bit. Whether
// target is the supervisory (highest-PID) process is validated later, by
// InitKernel — a grant made here that violates it fails kernel init rather
// than failing the grant call itself (spec §4.5: "a later-detected
// violation fails kernel init").
func (pt *ProcessTable) GrantPermission(caller, target int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.permit[caller][target] = true
}

func (pt *ProcessTable) HasPermission(caller, target int) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.permit[caller][target]
}

func (pt *ProcessTable) hasAnyGrantToSupervisoryTier() bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	for caller := 0; caller <= NProc; caller++ {
		if pt.permit[caller][NProc] {
			return true
		}
	}
	return false
}

// RecordAbort increments pid's total and per-cause abort counters. Called
// from the dispatcher's abort epilogue, which in the real system runs at
// exception level and so can never overlap with itself for the same pid.
func (pt *ProcessTable) RecordAbort(pid int, cause AbortCause) {
	if pid == 0 {
		// OS tasks are not subject to process-level abort accounting: they
		// never cross the user/supervisor boundary the counters describe.
		return
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	satAdd32(&pt.procs[pid].TotalAborts, 1)
	satAdd32(&pt.procs[pid].CauseAborts[cause], 1)
}

func (pt *ProcessTable) totalFailures(pid int) uint32 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.procs[pid].TotalAborts
}

func (pt *ProcessTable) failures(pid int, cause AbortCause) uint32 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.procs[pid].CauseAborts[cause]
}

func (pt *ProcessTable) snapshot() []ProcessDescriptor {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	out := make([]ProcessDescriptor, len(pt.procs))
	copy(out, pt.procs[:])
	return out
}
