package controller

import (
	"fmt"

	"taskboard/client"
	"taskboard/domain"
)

// movePlan is the persistence side of one drop gesture: either a single
// order value for the moved task, or a full renumber when the neighbours
// leave no integer gap to slot into.
type movePlan struct {
	taskID   int64
	order    int
	renumber []client.OrderUpdate
	noop     bool
}

// planMove maps a task's new visual index to persisted order values.
// tasks must be in rendered order. The relative order of unaffected
// tasks is preserved in both plan shapes. compact renumbering rewrites
// orders to 0..n-1 and is only safe when the rendered list is the whole
// collection; a filtered view reuses its own surviving order values so
// tasks hidden by the filter keep their positions.
func planMove(tasks []domain.Task, taskID int64, newIndex int, compact bool) (movePlan, error) {
	from := -1
	for i, t := range tasks {
		if t.ID == taskID {
			from = i
			break
		}
	}
	if from == -1 {
		return movePlan{}, fmt.Errorf("task %d is not in the rendered list", taskID)
	}

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > len(tasks)-1 {
		newIndex = len(tasks) - 1
	}
	if newIndex == from {
		return movePlan{taskID: taskID, noop: true}, nil
	}

	arranged := make([]domain.Task, 0, len(tasks))
	arranged = append(arranged, tasks[:from]...)
	arranged = append(arranged, tasks[from+1:]...)
	arranged = append(arranged[:newIndex:newIndex], append([]domain.Task{tasks[from]}, arranged[newIndex:]...)...)

	var prev, next *domain.Task
	if newIndex > 0 {
		prev = &arranged[newIndex-1]
	}
	if newIndex < len(arranged)-1 {
		next = &arranged[newIndex+1]
	}

	switch {
	case prev == nil && next == nil:
		return movePlan{taskID: taskID, noop: true}, nil
	case prev == nil:
		return movePlan{taskID: taskID, order: next.Order - 1}, nil
	case next == nil:
		return movePlan{taskID: taskID, order: prev.Order + 1}, nil
	case next.Order-prev.Order > 1:
		return movePlan{taskID: taskID, order: prev.Order + (next.Order-prev.Order)/2}, nil
	}

	// No gap between the neighbours: renumber the whole arrangement.
	renumber := make([]client.OrderUpdate, len(arranged))
	if compact {
		for i, t := range arranged {
			renumber[i] = client.OrderUpdate{ID: t.ID, Order: i}
		}
	} else {
		// Reassign the rendered tasks' own order values, already
		// nondecreasing in rendered order.
		for i, t := range arranged {
			renumber[i] = client.OrderUpdate{ID: t.ID, Order: tasks[i].Order}
		}
	}
	return movePlan{taskID: taskID, renumber: renumber}, nil
}
