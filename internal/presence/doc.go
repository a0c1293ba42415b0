// Package presence tracks connected participants, their room memberships, and
// aggregate occupancy, and resolves broadcast audiences for the transport
// layer.
//
// All state belongs to a single Core guarded by one mutex, so mutations from
// independent connections apply one at a time in arrival order. Callers never
// receive references to the internal maps, only copies.
package presence
