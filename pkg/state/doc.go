// Package state stores named state contributions for factories and applies
// them to builders, so fixtures such as "admin" or "suspended" can live in
// YAML files or any other store instead of Go code.
//
// Responsibilities:
//   - Store only loads and saves the attributes of one named state.
//   - Resolver loads several named states in order and queues them on a
//     builder with factory.Builder.StateAs, labelling each layer so traces
//     report which named state supplied a value.
//   - The core factory package stays persistence-agnostic.
//
// Data flow:
//
//	YAML -> Fixture -> Store -> Resolver -> Builder.StateAs(...) -> Make
//
// Deterministic keys:
//
//	Ref.Identifier() returns "<factory>/<name>", the key MemoryStore uses.
package state
