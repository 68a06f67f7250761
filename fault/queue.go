package fault

import (
	"slices"
)

// Queue holds the faults of one stage category that have not retired yet.
// Insert, Remove and Contains are O(1); removal swaps the last live entry
// into the freed slot.
type Queue struct {
	stage Stage
	reg   *Registry

	live []ID
	pos  map[ID]int
}

func newQueue(reg *Registry, stage Stage) *Queue {
	return &Queue{
		stage: stage,
		reg:   reg,
		pos:   make(map[ID]int),
	}
}

// Stage returns the stage category of the queue.
func (q *Queue) Stage() Stage {
	return q.stage
}

// Len returns the number of queued faults.
func (q *Queue) Len() int {
	return len(q.live)
}

// Insert queues f. Inserting a fault of another stage, a fault owned by
// another registry, or a fault that is already queued anywhere panics.
func (q *Queue) Insert(f Fault) {
	id := f.ID()

	if f.Stage() != q.stage {
		violate("Queue.Insert", "%s fault %d inserted into the %s queue",
			f.Stage(), id, q.stage)
	}
	if q.reg.Fault(id) != f {
		violate("Queue.Insert", "fault %d is not owned by this registry", id)
	}
	if home := q.reg.queueOf(id); home != nil {
		violate("Queue.Insert", "fault %d is already queued in the %s queue",
			id, home.stage)
	}

	q.pos[id] = len(q.live)
	q.live = append(q.live, id)
	q.reg.member[id] = q
}

// Remove detaches f from the queue. The fault stays in the registry.
// Removing a fault that is not queued here only logs a warning.
func (q *Queue) Remove(f Fault) {
	id := f.ID()

	i, ok := q.pos[id]
	if !ok {
		q.reg.log.Info("removing a fault that is not queued",
			"id", id, "queue", q.stage.String())
		return
	}

	last := len(q.live) - 1
	moved := q.live[last]
	q.live[i] = moved
	q.pos[moved] = i
	q.live = q.live[:last]

	delete(q.pos, id)
	q.reg.member[id] = nil
}

// Contains reports whether f is queued here.
func (q *Queue) Contains(f Fault) bool {
	_, ok := q.pos[f.ID()]
	return ok
}

// HasPending reports whether any queued fault may fire at ctx.
func (q *Queue) HasPending(ctx Context) bool {
	for _, id := range q.live {
		if q.reg.faults[id].Eligible(ctx) {
			return true
		}
	}
	return false
}

// Eligible returns the faults that may fire at ctx, in registration order.
// The result is a snapshot, so firing one of them does not disturb the
// iteration.
func (q *Queue) Eligible(ctx Context) []Fault {
	var out []Fault
	for _, id := range q.live {
		if f := q.reg.faults[id]; f.Eligible(ctx) {
			out = append(out, f)
		}
	}

	sortByID(out)
	return out
}

// Faults returns every queued fault in registration order.
func (q *Queue) Faults() []Fault {
	out := make([]Fault, 0, len(q.live))
	for _, id := range q.live {
		out = append(out, q.reg.faults[id])
	}

	sortByID(out)
	return out
}

func sortByID(faults []Fault) {
	slices.SortFunc(faults, func(a, b Fault) int {
		return int(a.ID()) - int(b.ID())
	})
}
