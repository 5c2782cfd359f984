// Package core turns form submissions into items on a remote board.
//
// # Pipeline
//
// [Service.ProcessSubmission] moves one submission through fixed stages:
//
//  1. Columns are built. With a [MappingSet], each [ColumnRule] reads a
//     dotted path, applies its default and transform, and formats the
//     value for its column type. Without one, every field is typed by
//     [Classify] from its name.
//  2. Relations are resolved. Board relation and people columns are
//     resolved through the [Directory]; misses are skipped with a warning.
//     The composite descriptor is built from the resolved references.
//  3. Capacity is adjusted. Demand entries are read from the demand list
//     and planned by [Allocate] against a [Snapshot] of the capacity store.
//  4. The parent item is created. This is the only fatal step.
//  5. One child item is created per plan line, the parent is patched with
//     the child ids, pending files are uploaded and reservations are stored.
//
// Every non-fatal failure is logged and collected in [Result.Warnings].
//
// # Values
//
// Payloads are converted once by [Normalize] into the closed [Value] set
// (Null, Scalar, List, Object). [Format] switches on those variants only.
//
// # Capacity
//
// [Allocate] is pure. A slot's available quantity is its channel ceiling
// minus scheduled rows and other requesters' reservation rows. When the
// requested slot is short, the remainder goes to the paired slot and then
// to later slots of the same day. What cannot be placed is reported as a
// [CapacityDeficit].
//
// Allocation does not lock slots. Concurrent submissions for the same slot
// can together exceed its ceiling.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - SUB001-SUB005: submission errors (mapping, busy, payload, timeouts)
//   - REL001-REL002: relation errors
//   - CAP001: capacity deficit
//   - CRM001-CRM005: remote board errors
//   - DB001-DB003: database errors
package core
