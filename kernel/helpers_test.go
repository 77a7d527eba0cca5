package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user-none/go-rtos-kernel/platform"
)

// defaultStacks returns NProc+1 non-overlapping, validly aligned stack
// regions, enough for any test that does not care about the exact layout.
func defaultStacks() [NProc + 1]StackRegion {
	var stacks [NProc + 1]StackRegion
	base := uint32(0x2000)
	for i := range stacks {
		stacks[i] = StackRegion{Start: base, End: base + 512}
		base += 512
	}
	return stacks
}

func newTestKernel(t *testing.T) (*Kernel, *platform.SimPlatform) {
	t.Helper()
	sim := platform.NewSimPlatform()
	stacks := defaultStacks()
	// A real target's board-init code programs the MPU from the link map
	// before the kernel ever runs a task (platform.SimPlatform's GrantRegion
	// doc comment); grant every process read/write over its own stack here
	// to stand in for that boot step, so runTaskFrame's MPU check (§5) has
	// something to authorize against.
	for pid, stack := range stacks {
		sim.GrantRegion(uint8(pid), stack.Start, stack.size(), true, true)
	}
	k, err := NewKernel(sim, stacks)
	require.NoError(t, err)
	return k, sim
}

func noopTask(pid int, name string) TaskConfig {
	return TaskConfig{Name: name, PID: pid, Entry: func(tc *TaskContext) int32 { return 0 }}
}
