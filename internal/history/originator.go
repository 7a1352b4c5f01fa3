package history

// Originator is the owner of the live state tracked by a Manager.
type Originator[E Element[E]] interface {
	// CreateMemento captures the complete current state.
	CreateMemento() *Memento[E]

	// SetMemento replaces the current state with the one held by m.
	// A nil memento must leave the state unchanged.
	SetMemento(m *Memento[E])
}
