// Package dispatch allocates delivered power among prioritized destinations.
//
// The allocation is a single greedy pass in priority order: critical loads
// are served first and whatever demand cannot be met is shed. There is no
// backtracking and no fairness between destinations of different
// priorities; destinations sharing a priority keep their registration order.
//
// Usage example:
//
//	var d dispatch.PriorityDispatcher
//	res := d.Allocate(80, destinations)
//	for _, r := range res.Destinations {
//	        fmt.Println(r.Name, r.LastRecvKW, r.ShedKW)
//	}
package dispatch
