package kernel

// TaskFunc is a registered task's entry function. It receives a TaskContext
// scoped to the current activation and returns a result: a non-negative
// value is the task's own return value, a negative value is treated
// identically to an abort (CauseUserAbort) by the dispatcher epilogue.
type TaskFunc func(tc *TaskContext) int32

// TaskConfig is a task's immutable configuration, fixed at registration
// time. Name is not part of the original wire model but is carried so the
// debug package and failure logs can identify a task by more than an
// address.
type TaskConfig struct {
	Name        string
	Entry       TaskFunc
	BudgetTicks uint64 // 0 disables deadline monitoring
	PID         int    // 0 = OS task, 1..NProc = owning process
}

func (t TaskConfig) validate() error {
	if t.PID < 0 || t.PID > NProc {
		return ErrBadPID
	}
	if t.Entry == nil {
		if t.PID == 0 {
			return ErrOSTaskMissingEntry
		}
		return ErrMissingEntry
	}
	if t.PID == 0 {
		if t.BudgetTicks != 0 {
			return ErrOSTaskHasBudget
		}
		return nil
	}
	if t.BudgetTicks > BudgetCeilingTicks {
		return ErrBudgetTooLarge
	}
	return nil
}

// Frame is the per-activation record kept while a task runs: the §3
// "per-activation task frame". On real hardware it lives on the supervisor
// stack. This model does not instantiate it: runTaskFrame keeps the
// activation's PID, event, budget and start time in the TaskContext instead.
type Frame struct {
	PID            int
	CallerSP       uint32
	UserSP         uint32
	ResidualBudget uint64
	SavedPriority  uint8
	Cause          AbortCause
	Aborted        bool
}

// Sentinel panic values the dispatcher's recover() in runTaskFrame
// classifies into an AbortCause, the Go analogue of the trap vectors
// jumping to a common epilogue in §4.2.
type deadlineExceeded struct{}
type faultInjected struct{ cause AbortCause }
type terminateSignal struct{ result int32 }
type badArgAbort struct{ pid int }

// TaskContext is the only thing a TaskFunc gets. It carries the activation's
// budget/elapsed-time bookkeeping and the syscall surface a task uses to
// reach the kernel (trigger an event, run a task, suspend a process, use
// the priority-ceiling service, or terminate itself early).
type TaskContext struct {
	k     *Kernel
	pid   int
	event EventID // -1 if this activation was not event-triggered

	budget uint64
	start  uint64
}

// EventID reports which event triggered this activation, or -1 for
// activations started via run_task/init rather than an event.
func (tc *TaskContext) EventID() EventID { return tc.event }

// PID reports the owning process of the running task.
func (tc *TaskContext) PID() int { return tc.pid }

// Elapsed reports ticks consumed since this activation's entry.
func (tc *TaskContext) Elapsed() uint64 {
	return tc.k.platform.Timebase() - tc.start
}

// BusyWait simulates ticks worth of CPU-bound work. If the activation has a
// non-zero budget and cumulative elapsed time exceeds it, BusyWait panics
// with deadlineExceeded, unwinding straight to runTaskFrame's recover — the
// same non-local jump a real timebase-comparator exception performs.
//
// Arbitrary task code that never calls BusyWait (or Fault) is not bounded by
// this cooperative check; see DESIGN.md for why the seed-suite scenarios in
// spec §8 only ever need the cooperative path.
func (tc *TaskContext) BusyWait(ticks uint64) {
	tc.k.advanceTimebase(ticks)
	if tc.budget != 0 && tc.Elapsed() > tc.budget {
		panic(deadlineExceeded{})
	}
}

// Fault lets a task (typically a test) simulate one of the CPU exceptions
// §4.2 lists, rather than only the deadline/bad-return paths BusyWait and a
// negative return already cover.
func (tc *TaskContext) Fault(cause AbortCause) {
	panic(faultInjected{cause})
}

// Terminate implements terminate_user_task: system call 0, reserved. It
// propagates result exactly as a normal return would, except it never
// returns to the caller (the call "does not return").
func (tc *TaskContext) Terminate(result int32) {
	tc.k.terminateUserTask(tc.pid, result)
}

// TriggerEvent is sc_trigger_event: software-trigger an event from user code.
func (tc *TaskContext) TriggerEvent(id EventID) error {
	return tc.k.scTriggerEvent(tc.pid, id)
}

// RunTask is sc_run_task: run another task to completion on behalf of the
// calling task, subject to the caller-PID-strictly-greater-than-target rule
// and the recursion floor described in §4.2.
func (tc *TaskContext) RunTask(t TaskConfig) (result int32, cause AbortCause, aborted bool) {
	return tc.k.SCRunTask(tc.pid, t)
}

// SuspendProcess is sc_suspend_process.
func (tc *TaskContext) SuspendProcess(target int) error {
	return tc.k.scSuspendProcess(tc.pid, target)
}

// Raise is suspend_all_interrupts_by_priority: the priority-ceiling raise.
func (tc *TaskContext) Raise(ceiling uint8) (previous uint8, err error) {
	return tc.k.pcpRaise(tc.pid, ceiling)
}

// Resume is resume_all_interrupts_by_priority: the priority-ceiling restore.
func (tc *TaskContext) Resume(previous uint8) {
	tc.k.pcpResume(previous)
}
