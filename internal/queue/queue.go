package queue

type Queue[T any] struct {
	stack chan T
}

// New returns a queue buffered to size. A poll sweep can enqueue a burst of
// trigger events without waiting on the dispatch worker.
func New[T any](size int) *Queue[T] {
	return &Queue[T]{
		stack: make(chan T, size),
	}
}

func (q *Queue[T]) Enqueue(entity T) {
	q.stack <- entity
}

func (q *Queue[T]) Dequeue() <-chan T {
	return q.stack
}

func (q *Queue[T]) Len() int {
	return len(q.stack)
}

func (q *Queue[T]) Close() {
	close(q.stack)
}
