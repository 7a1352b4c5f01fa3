// Package history provides snapshot based undo/redo for any state made of
// deep-copyable elements.
//
// The package follows the Memento pattern:
//
//   - An Originator owns the live state. It can capture that state in a
//     Memento and can be restored from one.
//   - A Memento holds deep copies of the elements, taken through their
//     Prototype capability, so mutating the live state never alters a
//     snapshot taken earlier.
//   - A Manager keeps two bounded stacks of Mementos (undo and redo) for a
//     single Originator.
//
// # Recording
//
// Callers record before they mutate:
//
//	mgr.Record()        // snapshot the state the edit starts from
//	drawing.Add(fig)    // mutate the live state
//
// If the edit turns out to be a no-op (the gesture was aborted, validation
// failed) the caller discards the snapshot with Cancel.
//
// # Bounds
//
// Both stacks hold at most Capacity mementos. Pushing onto a full stack
// evicts the oldest entry first, and SetCapacity trims both stacks from the
// oldest end. A memento equal to the current top of its target stack is not
// pushed again.
package history
