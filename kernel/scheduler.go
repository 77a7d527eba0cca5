package kernel

import (
	"go.uber.org/multierr"

	"github.com/user-none/go-rtos-kernel/platform"
)

// CreateEvent registers a new event. Fails per the rules in spec §4.1:
// table full, bad priority, inconsistent period/first-activation, reserved
// time bits set, or an out-of-range min-caller-pid. EventIDs are issued
// densely starting at 0.
func (k *Kernel) CreateEvent(periodMS, firstActivationMS uint32, priority uint8, minCallerPID int) (EventID, error) {
	return k.events.createEvent(periodMS, firstActivationMS, priority, minCallerPID)
}

// RegisterTask implements register_task. eventID is either a real EventID or
// InitEvent, which stores the task as the one-per-process init task instead
// of appending it to an event's task list.
func (k *Kernel) RegisterTask(cfg TaskConfig, eventID EventID) error {
	if k.started {
		return cfgErr("register_task", ErrSchedulerStarted)
	}
	if err := cfg.validate(); err != nil {
		return cfgErr("register_task", err)
	}
	if eventID == InitEvent {
		k.initMu.Lock()
		defer k.initMu.Unlock()
		if _, exists := k.initTasks[cfg.PID]; exists {
			return cfgErr("register_task", ErrInitTaskAlreadyRegistered)
		}
		k.initTasks[cfg.PID] = cfg
		return nil
	}
	if err := k.events.appendTask(eventID, cfg); err != nil {
		return err
	}
	return nil
}

// InitKernel validates the static configuration, initializes process
// stacks, wires each event to its software-interrupt slot, enables
// interrupts, runs every registered init task in increasing-PID order,
// releases configured processes to Running, and starts the 1 ms tick
// (§4.1).
func (k *Kernel) InitKernel() error {
	if k.started {
		return cfgErr("init_kernel", ErrAlreadyStarted)
	}

	var errs error
	for _, ev := range k.events.all() {
		if len(ev.Tasks) == 0 {
			errs = multierr.Append(errs, cfgErrf("init_kernel", "event %d: %v", ev.ID, ErrEventHasNoTasks))
			continue
		}
		if ev.Priority == platform.UnblockableTier {
			for _, t := range ev.Tasks {
				if t.PID != 0 && t.PID != NProc {
					errs = multierr.Append(errs, cfgErrf("init_kernel", "event %d: %v", ev.ID, ErrUnblockableTierViolation))
				}
			}
		}
	}
	if k.processes.hasAnyGrantToSupervisoryTier() {
		errs = multierr.Append(errs, cfgErr("init_kernel", ErrSupervisoryGrant))
	}
	if errs != nil {
		return errs
	}

	k.processes.initStacks()

	for _, ev := range k.events.all() {
		k.platform.SetVectorPriority(ev.slot, ev.Priority)
	}
	k.platform.SetVectorPriority(platform.TickVectorSlot, platform.KernelPriority)
	k.platform.StartPeriodicTimer(TickStepMS, func() { k.Tick() })
	k.platform.EnableInterrupts()

	k.initMu.Lock()
	initTasks := make(map[int]TaskConfig, len(k.initTasks))
	for pid, t := range k.initTasks {
		initTasks[pid] = t
	}
	k.initMu.Unlock()

	for pid := 0; pid <= NProc; pid++ {
		if t, ok := initTasks[pid]; ok {
			k.RunInitTask(t)
		}
	}

	for pid := 1; pid <= NProc; pid++ {
		k.processes.setRunning(pid)
	}

	k.started = true
	k.tickStep = TickStepMS
	return nil
}

// Tick is the scheduler's own periodic-timer handler, run at KernelPriority
// and so never preempted by any event it schedules (§4.1): for every cyclic
// event whose due time is at or before the current system time, attempt to
// set its pending bit (saturating the activation-loss counter if it was
// already pending), advancing its due time by one period either way; then
// advance system time by one step and service the pending events. The first
// tick after InitKernel therefore serves events due at time 0.
func (k *Kernel) Tick() {
	if k.tickStep == 0 {
		return
	}
	for _, ev := range k.events.all() {
		if ev.PeriodMS == 0 {
			continue
		}
		if int32(ev.NextDueMS-k.now) > 0 {
			continue
		}
		if !k.trySetPending(ev) {
			satAdd32(&ev.ActivationLoss, 1)
		}
		ev.NextDueMS += ev.PeriodMS
	}
	k.now += k.tickStep
	k.runPendingEvents()
}

// trySetPending is the software-trigger primitive shared by Tick,
// TriggerEvent and scTriggerEvent: within a critical section, set the
// event's pending bit if clear and report success, or report failure if it
// was already pending.
func (k *Kernel) trySetPending(ev *EventDescriptor) bool {
	restore := k.platform.CriticalSection()
	defer restore()
	if k.platform.SoftwarePending(ev.slot) {
		return false
	}
	k.platform.PendSoftware(ev.slot)
	return true
}

// TriggerEvent is trigger_event: an OS-context software trigger.
func (k *Kernel) TriggerEvent(id EventID) error {
	ev, err := k.events.get(id)
	if err != nil {
		return err
	}
	if !k.trySetPending(ev) {
		satAdd32(&ev.ActivationLoss, 1)
		return ErrActivationLost
	}
	k.runPendingEvents()
	return nil
}

// scTriggerEvent is sc_trigger_event: the system-call variant, which
// additionally rejects callers below the event's min-caller-pid or an
// out-of-range event id by aborting the calling task.
func (k *Kernel) scTriggerEvent(callerPID int, id EventID) (err error) {
	k.withConformance(CallTriggerEvent, func() {
		ev, lookupErr := k.events.get(id)
		if lookupErr != nil || callerPID < ev.MinCallerPID {
			k.abortBadArg(callerPID)
		}
		if !k.trySetPending(ev) {
			satAdd32(&ev.ActivationLoss, 1)
			err = ErrActivationLost
			return
		}
		k.runPendingEvents()
	})
	return err
}

// runPendingEvents services every currently-pending event in strict
// fixed-priority order, tie-broken by the lower EventID (§4.1 rationale:
// its software-interrupt slot is numerically lower and served first by the
// controller at equal priority). Re-entrant: an event handler that triggers
// another event causes that event to be serviced within the same call,
// mirroring nested hardware interrupts.
func (k *Kernel) runPendingEvents() {
	for {
		id, ok := k.highestPendingEvent()
		if !ok {
			return
		}
		k.runEventHandler(id)
	}
}

func (k *Kernel) highestPendingEvent() (EventID, bool) {
	best := EventID(-1)
	var bestPriority uint8
	for _, ev := range k.events.all() {
		if !k.platform.SoftwarePending(ev.slot) {
			continue
		}
		if best == -1 || ev.Priority > bestPriority || (ev.Priority == bestPriority && ev.ID < best) {
			best, bestPriority = ev.ID, ev.Priority
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// runEventHandler is the event's software-interrupt handler: walk its task
// list in registration order, running OS tasks directly and user tasks
// through the dispatcher, then clear the pending bit to re-arm it.
func (k *Kernel) runEventHandler(id EventID) {
	ev, err := k.events.get(id)
	if err != nil {
		return
	}
	for _, t := range ev.Tasks {
		if t.PID == 0 {
			k.OSRunTask(t, id)
		} else {
			k.runTaskFrame(t, id, false)
		}
	}
	restore := k.platform.CriticalSection()
	k.platform.ClearSoftware(ev.slot)
	restore()
}

// GetNoActivationLoss reports an event's saturating activation-loss counter.
func (k *Kernel) GetNoActivationLoss(id EventID) (uint32, error) {
	ev, err := k.events.get(id)
	if err != nil {
		return 0, err
	}
	return ev.ActivationLoss, nil
}
