package scraper

import "errors"

var (
	// ErrNoPendingTasks means every niche x query x sub-query task is done.
	ErrNoPendingTasks = errors.New("no pending scraping tasks")
	// ErrNoTaxonomyData means there are no niches or no queries to enumerate.
	ErrNoTaxonomyData = errors.New("no niches or queries configured")
	// ErrTaskNotFound means a progress record references a niche or query that
	// no longer exists.
	ErrTaskNotFound = errors.New("associated niche or query not found")
	// ErrProgressNotFound means the progress id does not resolve.
	ErrProgressNotFound = errors.New("progress record not found")
	// ErrInvalidProgressID means the progress id is malformed.
	ErrInvalidProgressID = errors.New("invalid progress id")
)
