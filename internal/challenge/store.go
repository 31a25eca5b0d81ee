package challenge

import "context"

// Store maps challenge ids to their expected answers.
//
// Implementations must make Consume atomic per id: of any number of concurrent
// Consume calls for the same id and matching answer, exactly one reports true.
type Store interface {
	// Put inserts or overwrites the answer for id.
	Put(ctx context.Context, id, answer string) error
	// Peek returns the answer for id without removing it.
	Peek(ctx context.Context, id string) (string, error)
	// Take returns the answer for id and removes it.
	Take(ctx context.Context, id string) (string, error)
	// Consume removes id only if its stored answer equals answer, and
	// reports whether it did. Unknown ids report false with a nil error.
	Consume(ctx context.Context, id, answer string) (bool, error)
}
