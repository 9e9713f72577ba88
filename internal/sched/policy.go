package sched

import (
	"fmt"
	"strings"
)

// Policy names accepted in the configuration.
const (
	PolicyGEDF = "gedf" // global earliest deadline first
	PolicyGFP  = "gfp"  // global fixed priority
	PolicyFPUS = "fpus" // global fixed priority with utilization separation
	PolicyPFP  = "pfp"  // partitioned fixed priority, first-fit by response time
)

// Admission is the submission-time verdict of a policy.
type Admission struct {
	Pinned bool
	Home   int
	Class  Class
}

// Policy captures what differs between the scheduling disciplines. The event
// protocol itself lives in Scheduler.
type Policy interface {
	Name() string
	Order() Order
	// Partitioned policies place each task once, at submission, and only
	// ever run it on its home CPU.
	Partitioned() bool
	AllowAperiodic() bool
	Admit(id TaskID, p Params) (Admission, error)
	Release(id TaskID)
	// JobKey is the eligibility of a job released at now.
	JobKey(t *Task, now int64) int64
}

// NewPolicy builds the policy called name for a system of nrCPU CPUs.
// The analyzer is only used by the partitioned policy.
func NewPolicy(name string, nrCPU int, analyzer *Analyzer) (Policy, error) {
	switch strings.ToLower(name) {
	case PolicyGEDF:
		return GEDF{}, nil
	case PolicyGFP:
		return GFP{}, nil
	case PolicyFPUS:
		return FPUS{nrCPU: int64(nrCPU)}, nil
	case PolicyPFP:
		if analyzer == nil {
			return nil, fmt.Errorf("policy %s requires an analyzer", name)
		}
		return PFP{analyzer: analyzer}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

func globalAdmission() Admission {
	return Admission{Home: NoCPU, Class: ClassRealTime}
}

// GEDF orders jobs by absolute deadline.
type GEDF struct{}

func (GEDF) Name() string         { return PolicyGEDF }
func (GEDF) Order() Order         { return Ascending }
func (GEDF) Partitioned() bool    { return false }
func (GEDF) AllowAperiodic() bool { return false }
func (GEDF) Release(TaskID)       {}

func (GEDF) Admit(TaskID, Params) (Admission, error) { return globalAdmission(), nil }

func (GEDF) JobKey(t *Task, now int64) int64 { return now + t.Params.D }

// GFP orders jobs by static priority.
type GFP struct{}

func (GFP) Name() string         { return PolicyGFP }
func (GFP) Order() Order         { return Descending }
func (GFP) Partitioned() bool    { return false }
func (GFP) AllowAperiodic() bool { return false }
func (GFP) Release(TaskID)       {}

func (GFP) Admit(TaskID, Params) (Admission, error) { return globalAdmission(), nil }

func (GFP) JobKey(t *Task, _ int64) int64 { return t.Params.Priority }

// FPUS is global fixed priority where heavy tasks, those whose utilization
// exceeds N/(3N-2), always run at maximum eligibility.
type FPUS struct {
	GFP
	nrCPU int64
}

func (FPUS) Name() string { return PolicyFPUS }

func (f FPUS) Admit(_ TaskID, p Params) (Admission, error) {
	a := globalAdmission()
	a.Pinned = f.Heavy(p)
	return a, nil
}

// Heavy reports whether C/T > N/(3N-2), compared in integers.
func (f FPUS) Heavy(p Params) bool {
	if p.T == 0 {
		return false
	}
	return p.C*(3*f.nrCPU-2) > p.T*f.nrCPU
}

// PFP binds each periodic task to the first CPU that passes response-time
// analysis. Tasks that fit nowhere, and aperiodic tasks, run best-effort.
type PFP struct {
	analyzer *Analyzer
}

func (PFP) Name() string         { return PolicyPFP }
func (PFP) Order() Order         { return Descending }
func (PFP) Partitioned() bool    { return true }
func (PFP) AllowAperiodic() bool { return true }

func (p PFP) Release(id TaskID) { p.analyzer.Remove(id) }

func (p PFP) Admit(id TaskID, params Params) (Admission, error) {
	if params.T == 0 {
		return Admission{Home: NoCPU, Class: ClassBestEffort}, nil
	}
	cpu, ok := p.analyzer.Partition(id, params)
	if !ok {
		return Admission{Home: NoCPU, Class: ClassBestEffort}, nil
	}
	return Admission{Home: cpu, Class: ClassRealTime}, nil
}

func (PFP) JobKey(t *Task, _ int64) int64 { return t.Params.Priority }
