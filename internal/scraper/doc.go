// Package scraper implements the task-assignment engine that hands
// {niche x query x sub-query} combinations to external crawler workers and
// records their progress.
//
// Enumeration order is niche (creation order) outer, query (creation order)
// inner; each (niche, query) runs its main task first and then, once the main
// task is done, one task per sub-query in store order. The engine keeps no
// state between calls: every GetNextTask re-derives its position from the
// done flags in the progress store.
package scraper
