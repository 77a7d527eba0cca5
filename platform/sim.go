package platform

import "sync"

// mpuRegion is a simple [start, start+length) range a SimPlatform grants a
// process read and/or write access to. Real targets consult the MPU region
// descriptors listed in §6; SimPlatform keeps an explicit table instead so
// tests can assert on specific addresses without programming real hardware.
type mpuRegion struct {
	pid          uint8
	start, end   uint32
	read, write  bool
}

// SimPlatform is a deterministic, in-process Platform used by the kernel's
// own tests and by host tools. Its timebase only advances when something
// calls AdvanceTimebase — there is no real wall clock involved, which is
// what makes the kernel's deadline-monitoring tests reproducible.
//
// Modeled on the teacher's own CPU register file (cpu.go): one mutable
// struct, no background goroutines, state mutated only by explicit calls.
type SimPlatform struct {
	mu sync.Mutex

	priority          uint8
	interruptsEnabled bool

	timebase uint64

	tickStepMS uint32
	onTick     func()

	pending [NumSoftwareInterrupts]bool
	vecPrio map[uint8]uint8

	regions []mpuRegion
}

// NewSimPlatform returns a SimPlatform with interrupts disabled and the
// timebase at zero, matching a freshly reset target before init_kernel runs.
func NewSimPlatform() *SimPlatform {
	return &SimPlatform{
		vecPrio: make(map[uint8]uint8),
	}
}

func (p *SimPlatform) Priority() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

func (p *SimPlatform) SetPriority(level uint8) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.priority
	p.priority = level
	return prev
}

func (p *SimPlatform) EnableInterrupts() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interruptsEnabled = true
}

func (p *SimPlatform) DisableInterrupts() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.interruptsEnabled
	p.interruptsEnabled = false
	return was
}

func (p *SimPlatform) CriticalSection() func() {
	p.mu.Lock()
	wasEnabled := p.interruptsEnabled
	p.interruptsEnabled = false
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.interruptsEnabled = wasEnabled
		p.mu.Unlock()
	}
}

func (p *SimPlatform) Timebase() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timebase
}

// AdvanceTimebase moves the simulated free-running counter forward. Used by
// kernel.TaskContext.BusyWait to model CPU-bound work and by tests that
// need to drive the deadline comparator directly.
func (p *SimPlatform) AdvanceTimebase(ticks uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timebase += ticks
}

func (p *SimPlatform) StartPeriodicTimer(stepMS uint32, onTick func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickStepMS = stepMS
	p.onTick = onTick
}

func (p *SimPlatform) StopPeriodicTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickStepMS = 0
	p.onTick = nil
}

// TickStepMS reports the step a prior StartPeriodicTimer installed, for
// tests asserting that init_kernel actually armed the timer.
func (p *SimPlatform) TickStepMS() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tickStepMS
}

func (p *SimPlatform) PendSoftware(slot uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	was := p.pending[slot]
	p.pending[slot] = true
	return was
}

func (p *SimPlatform) ClearSoftware(slot uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[slot] = false
}

func (p *SimPlatform) SoftwarePending(slot uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[slot]
}

func (p *SimPlatform) SetVectorPriority(slot uint8, level uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vecPrio[slot] = level
}

// VectorPriority reports a previously programmed vector priority, for tests.
func (p *SimPlatform) VectorPriority(slot uint8) (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lvl, ok := p.vecPrio[slot]
	return lvl, ok
}

// GrantRegion authorizes process pid to read and/or write [start, start+length).
// Test/harness-only setup call; a real target programs MPU region descriptors
// at boot from the link map instead.
func (p *SimPlatform) GrantRegion(pid uint8, start, length uint32, read, write bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions = append(p.regions, mpuRegion{pid: pid, start: start, end: start + length, read: read, write: write})
}

func (p *SimPlatform) CheckUserWrite(pid uint8, addr, length uint32) bool {
	return p.checkAccess(pid, addr, length, true)
}

func (p *SimPlatform) CheckUserRead(pid uint8, addr, length uint32) bool {
	return p.checkAccess(pid, addr, length, false)
}

func (p *SimPlatform) checkAccess(pid uint8, addr, length uint32, write bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	end := addr + length
	for _, r := range p.regions {
		if r.pid != pid {
			continue
		}
		if write && !r.write {
			continue
		}
		if !write && !r.read {
			continue
		}
		if addr >= r.start && end <= r.end {
			return true
		}
	}
	return false
}

var _ Platform = (*SimPlatform)(nil)
