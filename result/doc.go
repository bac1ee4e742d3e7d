// Package result implements the run result model: immutable results, the
// descriptors that attribute them to a producer, and the append-only
// container that stores them.
//
// # Generations
//
// A Container is a flat, timestamp-ordered append log plus a single
// generation boundary (GenerationStart) fixed when the container is
// created. Every query distinguishes two scopes:
//
//   - Current: descriptors with CreatedAt >= GenerationStart, i.e. produced
//     by the run that owns this container.
//   - Latest: the most recent matching descriptor over the whole recorded
//     history, including descriptors inherited from another container.
//
// Inherited descriptors keep their original timestamps, which always
// precede the importing container's boundary, so a nested run can read the
// enclosing run's history without that history ever becoming "current".
//
// All timestamps come from a Clock that never returns the same instant
// twice, which makes the ordering total within a process.
package result
