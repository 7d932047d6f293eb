package eventbus

import "container/heap"

// pqueue orders events by (Priority desc, seq asc) so that delivery is FIFO
// within equal priority and higher priority always overtakes lower (§4.2).
type pqueue []*Event

func (q pqueue) Len() int { return len(q) }

func (q pqueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q pqueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pqueue) Push(x any) { *q = append(*q, x.(*Event)) }

func (q *pqueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ = heap.Interface(&pqueue{})
