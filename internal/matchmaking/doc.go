// Package matchmaking holds clients waiting for a partner and pairs them first-fit.
//
// The queue is FIFO: among compatible waiting entries the earliest one wins, and
// the requester that triggers a match becomes the session initiator. Entries whose
// age reaches the TTL can no longer be matched, whether or not a sweep has removed
// them yet.
//
// Queue is not safe for concurrent use. It is owned by the state store and only
// touched inside its critical section.
package matchmaking
