// Package memory implements a per-entity associative memory graph: small
// text fragments ("nodes") linked by directed edges and indexed by semantic
// embedding. Callers retrieve fragments by meaning (vector similarity) or by
// following associations (bounded-depth graph traversal), and mutate the
// graph through higher-level layers that keep it consistent.
//
// Architecture:
//   - Store: storage adapter contract (in-memory, chromem-go, BadgerDB)
//   - Provider / EmbeddingService: text-to-vector conversion with retry
//   - Traverse: the single BFS reachability implementation shared by stores
//   - Service: orchestration coupling embedding generation to persistence
//
// Higher layers build on this package:
//   - agent: mutation handler enforcing entity isolation, link symmetry,
//     and cascading cleanup, exposed as an LLM tool boundary
//   - recall: two-phase context assembly (vector search + graph expansion)
//
// Instances are caller-owned and explicitly constructed; there is no global
// state. Backend and provider variants are selected by configuration.
package memory
