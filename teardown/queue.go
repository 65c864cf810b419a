package teardown

import (
	"github.com/cockroachdb/errors"
)

type entry struct {
	name    string
	release func() error
}

// Queue is a list of deferred release callbacks. Callbacks run in the reverse order
// they were pushed, so resources are released before the resources they were built from.
//
// The zero value is an empty queue ready for use. A Queue is not safe for concurrent use.
type Queue struct {
	entries []entry
}

// Push appends a release callback. The name is attached to any error the callback returns.
func (q *Queue) Push(name string, release func() error) {
	if release == nil {
		panic("teardown: attempted to push a nil release callback")
	}

	q.entries = append(q.entries, entry{name: name, release: release})
}

// PushFunc appends a release callback that cannot fail
func (q *Queue) PushFunc(name string, release func()) {
	q.Push(name, func() error {
		release()
		return nil
	})
}

// Len returns the number of pending callbacks
func (q *Queue) Len() int {
	return len(q.entries)
}

// Flush runs every pending callback in reverse push order and empties the queue.
// A failing callback does not stop the flush; all errors are combined into the
// returned error.
func (q *Queue) Flush() error {
	var err error

	for i := len(q.entries) - 1; i >= 0; i-- {
		e := q.entries[i]
		q.entries[i] = entry{}

		if releaseErr := e.release(); releaseErr != nil {
			err = errors.CombineErrors(err, errors.Wrapf(releaseErr, "release %s", e.name))
		}
	}
	q.entries = q.entries[:0]

	return err
}
