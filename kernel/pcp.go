package kernel

// MaxCeiling is the highest ceiling suspend_all_interrupts_by_priority will
// accept: KernelPriority-2. KernelPriority-1 is reserved for the unblockable
// safety tier, and raising to KernelPriority itself would deadlock the tick.
const MaxCeiling = KernelPriority - 2

// pcpRaise implements suspend_all_interrupts_by_priority: raise the current
// priority to max(current, ceiling), returning the previous level. A
// ceiling above MaxCeiling aborts the calling task with SysCallBadArg.
func (k *Kernel) pcpRaise(callerPID int, ceiling uint8) (previous uint8, err error) {
	k.withConformance(CallPCPRaise, func() {
		if ceiling > MaxCeiling {
			k.abortBadArg(callerPID)
		}
		cur := k.platform.Priority()
		previous = cur
		if ceiling > cur {
			k.platform.SetPriority(ceiling)
		}
	})
	return previous, nil
}

// pcpResume implements resume_all_interrupts_by_priority: restore a
// previously saved priority level. Correct use is strictly nested (LIFO),
// but — matching spec §4.4 — this does not enforce nesting.
func (k *Kernel) pcpResume(previous uint8) {
	k.withConformance(CallPCPResume, func() {
		k.platform.SetPriority(previous)
	})
}
