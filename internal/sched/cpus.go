package sched

// cpuTable records which CPU is occupied and by whom. It is only touched
// under the scheduler lock, in the same critical section as the running set.
type cpuTable struct {
	occupied []bool
	owner    []TaskID
}

func newCPUTable(n int) *cpuTable {
	return &cpuTable{
		occupied: make([]bool, n),
		owner:    make([]TaskID, n),
	}
}

func (c *cpuTable) size() int { return len(c.occupied) }

func (c *cpuTable) valid(cpu int) bool { return cpu >= 0 && cpu < len(c.occupied) }

func (c *cpuTable) free(cpu int) bool { return c.valid(cpu) && !c.occupied[cpu] }

func (c *cpuTable) take(cpu int, id TaskID) {
	c.occupied[cpu] = true
	c.owner[cpu] = id
}

func (c *cpuTable) release(cpu int) {
	c.occupied[cpu] = false
	c.owner[cpu] = 0
}

// firstFree returns the lowest unoccupied CPU or NoCPU.
func (c *cpuTable) firstFree() int {
	for cpu, busy := range c.occupied {
		if !busy {
			return cpu
		}
	}
	return NoCPU
}
