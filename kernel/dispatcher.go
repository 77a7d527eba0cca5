package kernel

import "log"

// satAdd32 saturating-increments *counter by n, clamping at 2^32-1 instead
// of wrapping. Shared by the scheduler's activation-loss counters and the
// dispatcher's abort counters (§3, §7).
func satAdd32(counter *uint32, n uint32) {
	if *counter > ^uint32(0)-n {
		*counter = ^uint32(0)
		return
	}
	*counter += n
}

func (k *Kernel) advanceTimebase(ticks uint64) {
	if a, ok := k.platform.(interface{ AdvanceTimebase(uint64) }); ok {
		a.AdvanceTimebase(ticks)
	}
}

// runTaskFrame is the common body behind os_run_task, sc_run_task and
// run_init_task (§4.2): it re-checks the owning process's run state (unless
// bypassSuspendCheck, used only by run_init_task before any process has been
// released), validates the activation's stack region against the MPU (§5)
// before switching onto it, builds a TaskContext, runs the task's entry
// function, and converts any abort signal raised along the way into a
// counted cause.
func (k *Kernel) runTaskFrame(task TaskConfig, event EventID, bypassSuspendCheck bool) (result int32, cause AbortCause, aborted bool) {
	if task.PID != 0 && !bypassSuspendCheck {
		if k.processes.IsSuspended(task.PID) {
			k.processes.RecordAbort(task.PID, CauseProcessAbort)
			log.Printf("[kernel] pid=%d abort cause=%s", task.PID, CauseProcessAbort)
			return 0, CauseProcessAbort, true
		}
	}

	if task.PID != 0 {
		stack := k.processes.descriptor(task.PID).Stack
		if !k.platform.CheckUserWrite(uint8(task.PID), stack.Start, stack.size()) {
			k.processes.RecordAbort(task.PID, CauseDataTlb)
			log.Printf("[kernel] pid=%d abort cause=%s (stack region failed MPU write check)", task.PID, CauseDataTlb)
			return 0, CauseDataTlb, true
		}
	}

	tc := &TaskContext{
		k:      k,
		pid:    task.PID,
		event:  event,
		budget: task.BudgetTicks,
		start:  k.platform.Timebase(),
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case terminateSignal:
			result = v.result
			if result < 0 {
				cause, aborted = CauseUserAbort, true
				k.processes.RecordAbort(task.PID, CauseUserAbort)
				log.Printf("[kernel] pid=%d abort cause=%s result=%d", task.PID, cause, result)
			}
		case deadlineExceeded:
			cause, aborted = CauseDeadline, true
			result = -int32(cause)
			k.processes.RecordAbort(task.PID, cause)
			log.Printf("[kernel] pid=%d abort cause=%s", task.PID, cause)
		case faultInjected:
			cause, aborted = v.cause, true
			result = -int32(cause)
			k.processes.RecordAbort(task.PID, cause)
			log.Printf("[kernel] pid=%d abort cause=%s (injected)", task.PID, cause)
		case badArgAbort:
			// abortBadArg already recorded the counter (and logged) against
			// v.pid, which may differ from task.PID (a syscall handler
			// aborts its *caller*, not necessarily the task currently in
			// this frame).
			cause, aborted = CauseSysCallBadArg, true
			result = -int32(cause)
		default:
			// Any other panic is an unclassified CPU exception from the
			// task body itself; §4.2 lists several specific vectors this
			// model has no Go analogue for (alignment, FPU-unavailable,
			// TLB misses, ...) — fault injection via TaskContext.Fault
			// exercises those deliberately. An uninstrumented panic maps
			// to ProgramInterrupt, the closest general-purpose vector.
			cause, aborted = CauseProgramInterrupt, true
			result = -int32(cause)
			k.processes.RecordAbort(task.PID, cause)
			log.Printf("[kernel] pid=%d abort cause=%s (unclassified panic: %v)", task.PID, cause, r)
		}
	}()

	result = task.Entry(tc)
	if result < 0 {
		k.processes.RecordAbort(task.PID, CauseUserAbort)
		log.Printf("[kernel] pid=%d abort cause=%s result=%d", task.PID, CauseUserAbort, result)
		return result, CauseUserAbort, true
	}
	return result, 0, false
}

// OSRunTask runs a PID-0 task directly, with no privilege transition and no
// deadline monitoring (OS tasks always carry budget 0).
func (k *Kernel) OSRunTask(task TaskConfig, event EventID) (int32, AbortCause, bool) {
	return k.runTaskFrame(task, event, false)
}

// RunInitTask runs a process's init task. It bypasses the process-state
// check (§4.2): at the point init tasks run, no process has been released
// to Running yet, so the ordinary check would always reject them.
func (k *Kernel) RunInitTask(task TaskConfig) (int32, AbortCause, bool) {
	return k.runTaskFrame(task, InitEvent, true)
}

// SCRunTask implements sc_run_task: a user task runs another task to
// completion. callerPID must be strictly greater than the target's PID, and
// the recursion floor bounds how deep nested sc_run_task calls may go
// (§4.2).
func (k *Kernel) SCRunTask(callerPID int, task TaskConfig) (result int32, cause AbortCause, aborted bool) {
	if callerPID <= task.PID {
		k.abortBadArg(callerPID)
	}
	cur := k.platform.Priority()
	if cur < k.scRunTaskFloor {
		k.abortBadArg(callerPID)
	}
	prevFloor := k.scRunTaskFloor
	k.scRunTaskFloor = cur + 1
	defer func() { k.scRunTaskFloor = prevFloor }()
	return k.runTaskFrame(task, InitEvent, false)
}

// terminateUserTask implements system call 0: it never returns to its
// caller (the panic unwinds straight to runTaskFrame's recover).
func (k *Kernel) terminateUserTask(callerPID int, result int32) {
	k.withConformance(CallTerminateTask, func() {
		panic(terminateSignal{result: result})
	})
}
