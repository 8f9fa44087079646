// Package worker runs a device's dev_main_loop on a dedicated goroutine,
// per spec.md §5's "dedicated worker thread per device". The goroutine
// is supervised by sourcegraph/conc so a panic inside a backend's loop
// is caught and surfaced instead of silently killing the process.
package worker

import (
	"github.com/sourcegraph/conc"
)

// Loop is the backend-supplied I/O loop body: spec.md §4.2's
// dev_main_loop, run until it returns on its own (break observed).
type Loop func()

// Worker owns exactly one running goroutine for the lifetime of a
// Device, started once per Start and joined once per Stop.
type Worker struct {
	wg      conc.WaitGroup
	running bool
}

// Start launches loop on a new goroutine. It is an error to call Start
// again before Join has returned from a previous run; callers serialize
// this through the device mutex (spec.md §5), so Worker itself performs
// no additional locking.
func (w *Worker) Start(loop Loop) {
	w.running = true
	w.wg.Go(func() {
		loop()
	})
}

// Join blocks until the running loop has returned (or panicked, in
// which case the panic is re-raised here on the joining goroutine,
// matching conc.WaitGroup's propagation).
func (w *Worker) Join() {
	w.wg.Wait()
	w.running = false
}

// Running reports whether a loop is currently in flight.
func (w *Worker) Running() bool {
	return w.running
}
