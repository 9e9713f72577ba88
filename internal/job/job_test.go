package job

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rtsched/internal/sched"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	p := sched.Params{C: 2, T: 10, D: 5}

	assert.True(t, tr.Release(1, 0, p))
	j, ok := tr.Active(1)
	assert.True(t, ok)
	assert.Equal(t, Job{Task: 1, Release: 0, Deadline: 5, Remaining: 2}, j)

	assert.False(t, tr.Release(1, 3, p), "previous job still active")
	assert.False(t, tr.Run(1))
	assert.True(t, tr.Run(1))

	done, ok := tr.Finish(1, 6)
	assert.True(t, ok)
	assert.Equal(t, int64(6), done.Finish)
	_, ok = tr.Active(1)
	assert.False(t, ok)

	assert.Equal(t, Stats{Released: 1, Completed: 1, Missed: 2, Overruns: 1}, tr.Stats(1))
	assert.Equal(t, Stats{}, tr.Stats(2))
}

func TestTracker_OnTime(t *testing.T) {
	tr := NewTracker()
	p := sched.Params{C: 1, T: 4, D: 4}
	for release := int64(0); release < 12; release += 4 {
		assert.True(t, tr.Release(7, release, p))
		assert.True(t, tr.Run(7))
		_, ok := tr.Finish(7, release+1)
		assert.True(t, ok)
	}
	assert.Equal(t, Stats{Released: 3, Completed: 3}, tr.Stats(7))

	assert.False(t, tr.Run(7), "no active job")
	_, ok := tr.Finish(7, 20)
	assert.False(t, ok)
}
