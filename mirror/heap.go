package mirror

// waitingHeap is a min-heap of jobs awaiting dispatch, keyed by
// scheduledFor (earliest first) with priority then creation time breaking
// ties. Keeping not-yet-ready jobs in a heap means the scheduler can find
// its next wakeup in O(1) instead of filtering the whole active set every
// loop iteration.
type waitingHeap []*Job

func (h waitingHeap) Len() int { return len(h) }

func (h waitingHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.ScheduledFor.Equal(b.ScheduledFor) {
		return a.ScheduledFor.Before(b.ScheduledFor)
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (h waitingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *waitingHeap) Push(x interface{}) {
	job := x.(*Job)
	job.heapIndex = len(*h)
	*h = append(*h, job)
}

func (h *waitingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.heapIndex = -1
	*h = old[:n-1]
	return job
}

// peek returns the earliest-scheduled job without removing it.
func (h waitingHeap) peek() *Job {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
