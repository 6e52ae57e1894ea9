package scheduler

import "errors"

// ErrUnknownTask is returned by operations that reference a task id the
// scheduler has never seen (or has since removed).
var ErrUnknownTask = errors.New("scheduler: unknown task")
