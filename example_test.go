package taskloop_test

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-taskloop"
)

// Example_spawn demonstrates that spawned tasks run on the executor's next
// tick, after the spawning task has suspended or finished.
func Example_spawn() {
	err := taskloop.Run(func(t *taskloop.Task) {
		for range 3 {
			t.Spawn(func(t *taskloop.Task) {
				fmt.Printf("child %d\n", t.Token())
			})
		}
		fmt.Printf("root %d finished\n", t.Token())
	})
	if err != nil {
		fmt.Println(err)
	}

	// Output:
	// root 1 finished
	// child 2
	// child 3
	// child 4
}

// Example_panic demonstrates that a panicking task is retired and reported,
// while the rest continue.
func Example_panic() {
	err := taskloop.Run(func(t *taskloop.Task) {
		t.Spawn(func(*taskloop.Task) { panic(`oops`) })
		t.Spawn(func(*taskloop.Task) { fmt.Println(`still running`) })
	})
	var panicErr *taskloop.PanicError
	if errors.As(err, &panicErr) {
		fmt.Printf("task %d panicked: %v\n", panicErr.Token, panicErr.Value)
	}

	// Output:
	// still running
	// task 2 panicked: oops
}
