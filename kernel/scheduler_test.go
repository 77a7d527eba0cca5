package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-none/go-rtos-kernel/platform"
)

func TestInitKernelRejectsEventWithNoTasks(t *testing.T) {
	k, _ := newTestKernel(t)
	_, err := k.CreateEvent(10, 0, 1, 0)
	require.NoError(t, err)

	err = k.InitKernel()
	assert.Error(t, err)
	assert.False(t, k.Started())
}

func TestInitKernelRejectsUnblockableTierViolation(t *testing.T) {
	k, _ := newTestKernel(t)
	id, err := k.CreateEvent(10, 0, platform.UnblockableTier, 0)
	require.NoError(t, err)
	require.NoError(t, k.RegisterTask(noopTask(1, "offender"), id))

	err = k.InitKernel()
	assert.Error(t, err)
}

func TestInitKernelAcceptsUnblockableTierForOSAndHighestPID(t *testing.T) {
	k, _ := newTestKernel(t)
	id, err := k.CreateEvent(10, 0, platform.UnblockableTier, 0)
	require.NoError(t, err)
	require.NoError(t, k.RegisterTask(noopTask(0, "os_task"), id))
	require.NoError(t, k.RegisterTask(noopTask(NProc, "supervisory_task"), id))

	require.NoError(t, k.InitKernel())
	assert.True(t, k.Started())
}

func TestInitKernelRejectsSupervisoryGrant(t *testing.T) {
	k, _ := newTestKernel(t)
	require.NoError(t, k.GrantPermissionSuspendProcess(1, NProc))

	err := k.InitKernel()
	assert.Error(t, err)
}

func TestInitKernelArmsTickAndEnablesInterrupts(t *testing.T) {
	k, sim := newTestKernel(t)
	require.NoError(t, k.InitKernel())

	assert.EqualValues(t, TickStepMS, sim.TickStepMS())
	lvl, ok := sim.VectorPriority(platform.TickVectorSlot)
	require.True(t, ok)
	assert.EqualValues(t, platform.KernelPriority, lvl)
	assert.True(t, sim.DisableInterrupts(), "init_kernel should leave external interrupts enabled")
}

func TestInitKernelRunsInitTasksInPIDOrder(t *testing.T) {
	k, _ := newTestKernel(t)
	var order []int
	for pid := NProc; pid >= 0; pid-- {
		p := pid
		require.NoError(t, k.RegisterTask(TaskConfig{
			Name: "init", PID: p,
			Entry: func(tc *TaskContext) int32 { order = append(order, tc.PID()); return 0 },
		}, InitEvent))
	}

	require.NoError(t, k.InitKernel())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRegisterTaskRejectsAfterStart(t *testing.T) {
	k, _ := newTestKernel(t)
	require.NoError(t, k.InitKernel())

	err := k.RegisterTask(noopTask(1, "late"), InitEvent)
	assert.Error(t, err)
}

func TestRegisterTaskRejectsDuplicateInitTask(t *testing.T) {
	k, _ := newTestKernel(t)
	require.NoError(t, k.RegisterTask(noopTask(1, "first"), InitEvent))
	err := k.RegisterTask(noopTask(1, "second"), InitEvent)
	assert.ErrorIs(t, err, ErrInitTaskAlreadyRegistered)
}

func TestTickAdvancesTimeAndFiresDueEvents(t *testing.T) {
	k, _ := newTestKernel(t)
	id, err := k.CreateEvent(5, 0, 1, 0)
	require.NoError(t, err)
	var runs int
	require.NoError(t, k.RegisterTask(TaskConfig{
		PID: 1, Entry: func(tc *TaskContext) int32 { runs++; return 0 },
	}, id))
	require.NoError(t, k.InitKernel())

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	assert.EqualValues(t, 5, k.SystemTimeMS())
	assert.Equal(t, 1, runs)
}

func TestTriggerEventCountsActivationLossWhenAlreadyPending(t *testing.T) {
	k, sim := newTestKernel(t)
	id, err := k.CreateEvent(0, 0, 1, 0)
	require.NoError(t, err)
	require.NoError(t, k.RegisterTask(noopTask(1, "a"), id))
	require.NoError(t, k.InitKernel())

	sim.PendSoftware(0) // simulate the slot already pending before trigger
	err = k.TriggerEvent(id)
	assert.ErrorIs(t, err, ErrActivationLost)

	loss, err := k.GetNoActivationLoss(id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, loss)
}

func TestHighestPendingEventTieBreaksOnLowerID(t *testing.T) {
	k, sim := newTestKernel(t)
	id0, err := k.CreateEvent(0, 0, 3, 0)
	require.NoError(t, err)
	id1, err := k.CreateEvent(0, 0, 3, 0)
	require.NoError(t, err)
	require.NoError(t, k.RegisterTask(noopTask(1, "a"), id0))
	require.NoError(t, k.RegisterTask(noopTask(1, "b"), id1))
	require.NoError(t, k.InitKernel())

	sim.PendSoftware(uint8(id1))
	sim.PendSoftware(uint8(id0))

	best, ok := k.highestPendingEvent()
	require.True(t, ok)
	assert.Equal(t, id0, best)
}
