package kernel

import "sync"

// EventID densely identifies a registered event, starting at 0. It also
// doubles as the event's hardware software-interrupt slot.
type EventID int

// InitEvent is the sentinel register_task passes instead of a real EventID
// to register a per-process init task.
const InitEvent EventID = -1

// EventDescriptor is the §3 event record: a cyclic and/or software trigger
// source bound to an ordered list of tasks and one hardware
// software-interrupt slot.
type EventDescriptor struct {
	ID             EventID
	PeriodMS       uint32
	NextDueMS      uint32
	Priority       uint8
	MinCallerPID   int
	ActivationLoss uint32
	Tasks          []TaskConfig

	slot uint8
}

// EventTable holds up to NEvent events, matching the number of hardware
// software-interrupt slots.
type EventTable struct {
	mu     sync.Mutex
	events []*EventDescriptor
}

func newEventTable() *EventTable {
	return &EventTable{}
}

// createEvent validates and appends a new event. See Kernel.CreateEvent for
// the public, documented entry point.
func (et *EventTable) createEvent(periodMS, firstMS uint32, priority uint8, minCallerPID int) (EventID, error) {
	et.mu.Lock()
	defer et.mu.Unlock()

	if len(et.events) >= NEvent {
		return 0, cfgErr("create_event", ErrEventTableFull)
	}
	if priority == 0 || priority >= KernelPriority {
		return 0, cfgErr("create_event", ErrBadPriority)
	}
	if periodMS == 0 && firstMS != 0 {
		return 0, cfgErr("create_event", ErrPeriodFirstActivationBad)
	}
	if (periodMS|firstMS)&reservedTimeBits != 0 {
		return 0, cfgErr("create_event", ErrReservedTimeBits)
	}
	if minCallerPID > NProc+1 {
		return 0, cfgErr("create_event", ErrBadMinCallerPID)
	}

	id := EventID(len(et.events))
	et.events = append(et.events, &EventDescriptor{
		ID:           id,
		PeriodMS:     periodMS,
		NextDueMS:    firstMS,
		Priority:     priority,
		MinCallerPID: minCallerPID,
		slot:         uint8(id),
	})
	return id, nil
}

func (et *EventTable) get(id EventID) (*EventDescriptor, error) {
	et.mu.Lock()
	defer et.mu.Unlock()
	if id < 0 || int(id) >= len(et.events) {
		return nil, cfgErr("event_lookup", ErrUnknownEvent)
	}
	return et.events[id], nil
}

// all returns a copy of the event slice; the descriptors themselves are
// shared. Its callers (InitKernel's validation, Tick, highestPendingEvent,
// Snapshot) read and, in Tick, update descriptor fields through these
// pointers without holding the table's lock.
func (et *EventTable) all() []*EventDescriptor {
	et.mu.Lock()
	defer et.mu.Unlock()
	out := make([]*EventDescriptor, len(et.events))
	copy(out, et.events)
	return out
}

// restoreActivationLoss overwrites id's activation-loss counter directly.
// Used only by Kernel.RestoreForTest.
func (et *EventTable) restoreActivationLoss(id EventID, n uint32) error {
	ev, err := et.get(id)
	if err != nil {
		return err
	}
	et.mu.Lock()
	defer et.mu.Unlock()
	ev.ActivationLoss = n
	return nil
}

func (et *EventTable) appendTask(id EventID, t TaskConfig) error {
	ev, err := et.get(id)
	if err != nil {
		return err
	}
	et.mu.Lock()
	defer et.mu.Unlock()
	ev.Tasks = append(ev.Tasks, t)
	return nil
}
