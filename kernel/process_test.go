package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackRegionValidate(t *testing.T) {
	cases := []struct {
		name    string
		region  StackRegion
		wantErr error
	}{
		{"ok", StackRegion{Start: 0x1000, End: 0x1000 + 512}, nil},
		{"empty", StackRegion{Start: 0x1000, End: 0x1000}, ErrStackSizeOutOfBounds},
		{"unaligned start", StackRegion{Start: 0x1001, End: 0x1001 + 512}, ErrStackNotAligned},
		{"too small", StackRegion{Start: 0x1000, End: 0x1000 + 8}, ErrStackSizeOutOfBounds},
		{"too large", StackRegion{Start: 0, End: MaxStackSize + 8}, ErrStackSizeOutOfBounds},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.region.validate()
			if c.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestProcessTableSuspendReleaseIdempotent(t *testing.T) {
	pt, err := NewProcessTable(defaultStacks())
	require.NoError(t, err)

	pt.Release(1)
	assert.False(t, pt.IsSuspended(1))
	pt.Suspend(1)
	assert.True(t, pt.IsSuspended(1))
	pt.Suspend(1)
	assert.True(t, pt.IsSuspended(1))
	pt.Release(1)
	assert.False(t, pt.IsSuspended(1))
}

func TestProcessTablePermissionMatrix(t *testing.T) {
	pt, err := NewProcessTable(defaultStacks())
	require.NoError(t, err)

	assert.False(t, pt.HasPermission(1, 2))
	pt.GrantPermission(1, 2)
	assert.True(t, pt.HasPermission(1, 2))
	assert.False(t, pt.HasPermission(2, 1))
}

func TestProcessTableSupervisoryGrantDetected(t *testing.T) {
	pt, err := NewProcessTable(defaultStacks())
	require.NoError(t, err)

	assert.False(t, pt.hasAnyGrantToSupervisoryTier())
	pt.GrantPermission(1, NProc)
	assert.True(t, pt.hasAnyGrantToSupervisoryTier())
}

func TestProcessTableInitStacksFillsGuardAndSentinel(t *testing.T) {
	pt, err := NewProcessTable(defaultStacks())
	require.NoError(t, err)
	pt.initStacks()

	for pid := range pt.procs {
		p := &pt.procs[pid]
		require.NotEmpty(t, p.Memory)
		assert.Equal(t, stackGuardWords[0], p.Memory[0])
		assert.Equal(t, stackGuardWords[1], p.Memory[1])
		assert.Equal(t, p.Stack.End-16, p.UserSP)
		// everything past the guard words keeps the fill pattern.
		assert.Equal(t, stackFillWord, p.Memory[len(p.Memory)-1])
	}
}

func TestProcessTableRecordAbortIgnoresOSProcess(t *testing.T) {
	pt, err := NewProcessTable(defaultStacks())
	require.NoError(t, err)

	pt.RecordAbort(0, CauseProgramInterrupt)
	assert.Zero(t, pt.totalFailures(0))

	pt.RecordAbort(1, CauseProgramInterrupt)
	assert.EqualValues(t, 1, pt.totalFailures(1))
	assert.EqualValues(t, 1, pt.failures(1, CauseProgramInterrupt))
}
