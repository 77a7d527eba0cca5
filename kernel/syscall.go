package kernel

import (
	"log"

	"github.com/pkg/errors"
)

// ConformanceClass is the environment contract a system-call handler runs
// under (§4.3).
type ConformanceClass uint8

const (
	// Basic handlers run with external interrupts disabled and must not
	// rely on the caller's stack or small-data base pointers.
	Basic ConformanceClass = iota
	// Simple handlers run with external interrupts disabled but with a
	// normal calling convention.
	Simple
	// Full handlers run preemptible, at the caller's (possibly
	// PCP-raised) priority.
	Full
)

func (c ConformanceClass) String() string {
	switch c {
	case Basic:
		return "Basic"
	case Simple:
		return "Simple"
	case Full:
		return "Full"
	default:
		return "Unknown"
	}
}

// Stable system-call numbers from spec §6. CallPCPResume is not part of the
// §6 stable set (only the raise side, call 1, is listed there) — see
// DESIGN.md for why this implementation assigns it slot 2.
const (
	CallTerminateTask  = 0
	CallPCPRaise       = 1
	CallPCPResume      = 2
	CallTriggerEvent   = 5
	CallAssert         = 6
	CallSuspendProcess = 9
	CallRunTask        = 10

	numSyscalls = 64
)

type syscallDescriptor struct {
	Name  string
	Class ConformanceClass
	used  bool
}

// SyscallTable is the fixed 64-entry descriptor table from §3/§4.3. Each
// used entry names a call and its conformance class; everything else
// defaults to a no-op. The table is built once and never mutated again,
// matching "the table is read-only after init".
type SyscallTable struct {
	entries [numSyscalls]syscallDescriptor
}

func newSyscallTable() *SyscallTable {
	t := &SyscallTable{}
	set := func(n int, name string, class ConformanceClass) {
		t.entries[n] = syscallDescriptor{Name: name, Class: class, used: true}
	}
	set(CallTerminateTask, "terminate_user_task", Basic)
	set(CallPCPRaise, "suspend_all_interrupts_by_priority", Basic)
	set(CallPCPResume, "resume_all_interrupts_by_priority", Basic)
	set(CallTriggerEvent, "sc_trigger_event", Full)
	set(CallAssert, "assert", Basic)
	set(CallSuspendProcess, "sc_suspend_process", Simple)
	set(CallRunTask, "sc_run_task", Full)
	return t
}

func (t *SyscallTable) lookup(callNo int) (syscallDescriptor, bool) {
	if callNo < 0 || callNo >= numSyscalls {
		return syscallDescriptor{}, false
	}
	return t.entries[callNo], true
}

// Dispatch is the generic entry point §4.3 describes: it bounds-checks
// callNo and runs fn, wrapping it in a critical section for Basic/Simple
// conformance classes. A call number outside the table aborts the caller
// with CauseSysCallBadArg. An in-range but unassigned slot is a no-op.
//
// The five named operations (scTriggerEvent, SCRunTask, scSuspendProcess,
// pcpRaise/pcpResume, terminateUserTask) are implemented as ordinarily
// typed Kernel methods rather than through this generic function value —
// see withConformance — so their callers get real return types instead of
// boxed `any` arguments. Dispatch itself stays exercised directly by
// syscall_test.go to cover bad call numbers and the no-op default.
func (k *Kernel) Dispatch(callerPID, callNo int, fn func() (int32, error)) (int32, error) {
	d, ok := k.syscalls.lookup(callNo)
	if !ok {
		k.abortBadArg(callerPID)
	}
	if !d.used {
		return 0, nil
	}
	if d.Class == Basic || d.Class == Simple {
		restore := k.platform.CriticalSection()
		defer restore()
	}
	return fn()
}

// withConformance looks up callNo's conformance class and, for Basic/Simple,
// runs fn with external interrupts disabled — the same wrapping Dispatch
// applies, reused by the named operations below so the critical-section
// rule is defined in exactly one place.
func (k *Kernel) withConformance(callNo int, fn func()) {
	d, _ := k.syscalls.lookup(callNo)
	if d.Class == Basic || d.Class == Simple {
		restore := k.platform.CriticalSection()
		defer restore()
	}
	fn()
}

// abortBadArg aborts the calling task with CauseSysCallBadArg by panicking;
// the panic unwinds to runTaskFrame's recover, which is the only place
// allowed to turn it into a counted abort and a negative return value.
func (k *Kernel) abortBadArg(pid int) {
	k.processes.RecordAbort(pid, CauseSysCallBadArg)
	log.Printf("[kernel] pid=%d abort cause=%s", pid, CauseSysCallBadArg)
	panic(badArgAbort{pid})
}

// SystemCallBadArgument is the kernel helper a handler calls when it
// detects a bad argument (§4.3). It does not return. Valid only from
// handler code running on behalf of a user task.
func (k *Kernel) SystemCallBadArgument(callerPID int) {
	if callerPID == 0 {
		panic(errors.New("system_call_bad_argument called from OS context"))
	}
	k.abortBadArg(callerPID)
}
