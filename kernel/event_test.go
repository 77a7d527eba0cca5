package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTableCreateEventAssignsDenseIDs(t *testing.T) {
	et := newEventTable()
	id0, err := et.createEvent(10, 0, 1, 0)
	require.NoError(t, err)
	id1, err := et.createEvent(20, 0, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, id0)
	assert.EqualValues(t, 1, id1)
}

func TestEventTableCreateEventValidation(t *testing.T) {
	et := newEventTable()

	_, err := et.createEvent(10, 0, 0, 0)
	assert.ErrorIs(t, err, ErrBadPriority)

	_, err = et.createEvent(10, 0, KernelPriority, 0)
	assert.ErrorIs(t, err, ErrBadPriority)

	_, err = et.createEvent(0, 5, 1, 0)
	assert.ErrorIs(t, err, ErrPeriodFirstActivationBad)

	_, err = et.createEvent(10, 0, 1, NProc+2)
	assert.ErrorIs(t, err, ErrBadMinCallerPID)

	_, err = et.createEvent(reservedTimeBits, 0, 1, 0)
	assert.ErrorIs(t, err, ErrReservedTimeBits)
}

func TestEventTableCreateEventTableFull(t *testing.T) {
	et := newEventTable()
	for i := 0; i < NEvent; i++ {
		_, err := et.createEvent(uint32(i+1), 0, 1, 0)
		require.NoError(t, err)
	}
	_, err := et.createEvent(1, 0, 1, 0)
	assert.ErrorIs(t, err, ErrEventTableFull)
}

func TestEventTableGetUnknownID(t *testing.T) {
	et := newEventTable()
	_, err := et.get(99)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	_, err = et.get(-1)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestEventTableAppendTask(t *testing.T) {
	et := newEventTable()
	id, err := et.createEvent(10, 0, 1, 0)
	require.NoError(t, err)

	require.NoError(t, et.appendTask(id, noopTask(1, "a")))
	require.NoError(t, et.appendTask(id, noopTask(2, "b")))

	ev, err := et.get(id)
	require.NoError(t, err)
	require.Len(t, ev.Tasks, 2)
	assert.Equal(t, "a", ev.Tasks[0].Name)
	assert.Equal(t, "b", ev.Tasks[1].Name)

	err = et.appendTask(EventID(42), noopTask(1, "c"))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
