// Package debug renders a kernel.Snapshot for host-side tooling: a
// tablewriter summary of process and event state, and a spew-based detail
// dump for whichever single process a caller wants to inspect more closely.
// None of this runs on the target — it is the off-device counterpart spec §6
// has in mind when it says persisted state is none: a Snapshot is taken and
// thrown away by whatever tool renders it.
package debug

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"

	"github.com/user-none/go-rtos-kernel/kernel"
)

// RenderProcesses renders a Snapshot's process table, one row per process:
// PID, run state, total aborts, and the cause with the highest count ("-"
// when the process has no aborts). Per-cause counts are not tabulated.
func RenderProcesses(snap kernel.Snapshot) []byte {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"PID", "State", "Total Aborts", "Leading Cause"})
	for _, p := range snap.Processes {
		table.Append([]string{
			strconv.Itoa(p.PID),
			p.State.String(),
			strconv.FormatUint(uint64(p.TotalAborts), 10),
			leadingCause(p),
		})
	}
	table.Render()
	return buf.Bytes()
}

// RenderEvents renders a Snapshot's event table: period, priority, task
// count and activation-loss counter.
func RenderEvents(snap kernel.Snapshot) []byte {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Event", "Priority", "Period (ms)", "Tasks", "Activation Loss"})
	for _, ev := range snap.Events {
		table.Append([]string{
			strconv.Itoa(int(ev.ID)),
			strconv.Itoa(int(ev.Priority)),
			strconv.FormatUint(uint64(ev.PeriodMS), 10),
			strconv.Itoa(ev.TaskCount),
			strconv.FormatUint(uint64(ev.ActivationLoss), 10),
		})
	}
	table.Render()
	return buf.Bytes()
}

// Render renders the whole snapshot: system time, the process table, and
// the event table, in that order.
func Render(snap kernel.Snapshot) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "system time: %d ms\n\n", snap.SystemTimeMS)
	buf.Write(RenderProcesses(snap))
	buf.WriteString("\n")
	buf.Write(RenderEvents(snap))
	return buf.Bytes()
}

// Dump writes a spew-formatted, fully expanded view of one process, for the
// cases where the table summary isn't enough — a dump attached to a bug
// report, or a failing test's -v output.
func Dump(snap kernel.Snapshot, pid int) string {
	for _, p := range snap.Processes {
		if p.PID == pid {
			return spew.Sdump(p)
		}
	}
	return fmt.Sprintf("no process %d in snapshot", pid)
}

func leadingCause(p kernel.ProcessSnapshot) string {
	if p.TotalAborts == 0 {
		return "-"
	}
	var best kernel.AbortCause
	var bestCount uint32
	for cause, count := range p.CauseAborts {
		if count > bestCount {
			bestCount = count
			best = kernel.AbortCause(cause)
		}
	}
	return fmt.Sprintf("%s (%d)", best, bestCount)
}
