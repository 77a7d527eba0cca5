// Package kernel implements the core of a fixed-priority, preemptive
// real-time scheduler for a single-core target: the static process/task/
// event model, the task dispatcher, the system-call dispatcher, and the
// priority-ceiling service. It talks to hardware only through a
// platform.Platform value — see that package for the shim contract and its
// in-process reference implementation.
package kernel

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/user-none/go-rtos-kernel/platform"
)

// Kernel is the single aggregate of kernel state spec §9 calls for:
// scheduler time, the event table, the process table, the system-call
// table, and the handful of scalars (started, the tick step, the
// sc_run_task recursion floor) that do not belong to any of those. Interior
// mutability is restricted to the documented fields each sub-type already
// guards with its own mutex; nothing outside this package reaches in
// directly.
type Kernel struct {
	platform  platform.Platform
	processes *ProcessTable
	events    *EventTable
	syscalls  *SyscallTable

	initMu    sync.Mutex
	initTasks map[int]TaskConfig

	started bool
	now     uint32
	tickStep uint32

	scRunTaskFloor uint8
}

// NewKernel constructs a Kernel bound to plat, with one stack region per
// process (index 0 is the OS/supervisor). Every process starts Stopped; the
// scheduler has not started.
func NewKernel(plat platform.Platform, stacks [NProc + 1]StackRegion) (*Kernel, error) {
	pt, err := NewProcessTable(stacks)
	if err != nil {
		return nil, errors.Wrap(err, "new_kernel")
	}
	return &Kernel{
		platform:  plat,
		processes: pt,
		events:    newEventTable(),
		syscalls:  newSyscallTable(),
		initTasks: make(map[int]TaskConfig),
	}, nil
}

// SystemTimeMS reports the scheduler's current time.
func (k *Kernel) SystemTimeMS() uint32 { return k.now }

// Started reports whether InitKernel has run.
func (k *Kernel) Started() bool { return k.started }

// ReleaseProcess implements os_release_process: Stopped->Running. Valid
// only before the scheduler starts — it is how InitKernel itself brings
// processes up, and is not meant to be called afterward.
func (k *Kernel) ReleaseProcess(pid int) error {
	if k.started {
		return cfgErr("os_release_process", ErrSchedulerStarted)
	}
	k.processes.Release(pid)
	return nil
}

// SuspendProcess implements os_suspend_process: Running->Stopped,
// idempotent.
func (k *Kernel) SuspendProcess(pid int) {
	k.processes.Suspend(pid)
}

// IsProcessSuspended implements is_process_suspended, callable from user
// context.
func (k *Kernel) IsProcessSuspended(pid int) bool {
	return k.processes.IsSuspended(pid)
}

// GrantPermissionSuspendProcess implements grant_permission_suspend_process.
// Valid only before the scheduler starts. Whether this grants suspending the
// supervisory (highest-PID) process is validated later by InitKernel, which
// fails if any such grant is present (§4.5).
func (k *Kernel) GrantPermissionSuspendProcess(callerPID, targetPID int) error {
	if k.started {
		return cfgErr("grant_permission_suspend_process", ErrSchedulerStarted)
	}
	k.processes.GrantPermission(callerPID, targetPID)
	return nil
}

// scSuspendProcess implements sc_suspend_process: fails-user-task unless the
// permission bit for (callerPID, targetPID) is set.
func (k *Kernel) scSuspendProcess(callerPID, targetPID int) (err error) {
	k.withConformance(CallSuspendProcess, func() {
		if !k.processes.HasPermission(callerPID, targetPID) {
			k.abortBadArg(callerPID)
		}
		k.processes.Suspend(targetPID)
	})
	return nil
}

// GetTotalTaskFailures and GetTaskFailures expose the per-process abort
// counters from §7's error-propagation model.
func (k *Kernel) GetTotalTaskFailures(pid int) uint32 { return k.processes.totalFailures(pid) }
func (k *Kernel) GetTaskFailures(pid int, cause AbortCause) uint32 {
	return k.processes.failures(pid, cause)
}

// Snapshot is a point-in-time, read-only copy of process and event state,
// used by tests and by the host-side debug package. It is not persisted
// state: §6 still holds ("Persisted state: none") — a Snapshot is taken and
// discarded by tooling running off-device.
type Snapshot struct {
	SystemTimeMS uint32
	Processes    []ProcessSnapshot
	Events       []EventSnapshot
}

type ProcessSnapshot struct {
	PID         int
	State       RunState
	TotalAborts uint32
	CauseAborts [NumCauses]uint32
}

type EventSnapshot struct {
	ID             EventID
	Priority       uint8
	PeriodMS       uint32
	ActivationLoss uint32
	TaskCount      int
}

// RestoreForTest replaces the kernel's mutable runtime state — scheduler
// time, per-process lifecycle state and abort counters, per-event
// activation-loss counters — with a previously captured Snapshot. It does
// not replay static configuration (event periods/priorities, task lists,
// stack regions): those are fixed at registration time, already validated
// by InitKernel, and not part of what a Snapshot is meant to stand in for.
// Test/diagnostic infrastructure only, the write-back counterpart to
// Snapshot for differential testing; it does not make any state persisted
// (§6 "Persisted state: none" still holds).
func (k *Kernel) RestoreForTest(snap Snapshot) error {
	for _, p := range snap.Processes {
		if p.PID < 0 || p.PID > NProc {
			return cfgErrf("restore_for_test", "process %d: %v", p.PID, ErrBadPID)
		}
	}
	k.now = snap.SystemTimeMS
	for _, p := range snap.Processes {
		k.processes.restore(p.PID, p.State, p.TotalAborts, p.CauseAborts)
	}
	for _, ev := range snap.Events {
		if err := k.events.restoreActivationLoss(ev.ID, ev.ActivationLoss); err != nil {
			return errors.Wrap(err, "restore_for_test")
		}
	}
	return nil
}

func (k *Kernel) Snapshot() Snapshot {
	procs := k.processes.snapshot()
	out := Snapshot{SystemTimeMS: k.now}
	for _, p := range procs {
		out.Processes = append(out.Processes, ProcessSnapshot{
			PID:         p.PID,
			State:       p.State,
			TotalAborts: p.TotalAborts,
			CauseAborts: p.CauseAborts,
		})
	}
	for _, ev := range k.events.all() {
		out.Events = append(out.Events, EventSnapshot{
			ID:             ev.ID,
			Priority:       ev.Priority,
			PeriodMS:       ev.PeriodMS,
			ActivationLoss: ev.ActivationLoss,
			TaskCount:      len(ev.Tasks),
		})
	}
	return out
}
