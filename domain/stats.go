package domain

import "math"

// Stats are the aggregate counts shown above the list. CompletionRate is
// a percentage rounded to one decimal place.
type Stats struct {
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// ComputeStats derives Stats from a task snapshot. It is the local
// fallback when the stats endpoint is unavailable.
func ComputeStats(tasks []Task) Stats {
	total := len(tasks)
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	return Stats{
		TotalTasks:     total,
		CompletedTasks: completed,
		PendingTasks:   total - completed,
		CompletionRate: CompletionRate(completed, total),
	}
}

// CompletionRate computes completed/total as a percentage rounded to one
// decimal. A zero total yields 0, not a division fault.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}
