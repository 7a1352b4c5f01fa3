package history

// Prototype is implemented by values that can produce an independent deep
// copy of themselves.
type Prototype[E any] interface {
	// Clone returns a copy sharing no mutable state with the receiver.
	Clone() E
}

// Element is the capability required from values stored in a Memento:
// deep copy plus value equality and a hash consistent with it.
type Element[E any] interface {
	Prototype[E]
	Equal(other E) bool
	Hash() uint64
}
