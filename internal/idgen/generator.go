// Package idgen issues the identifiers the execution-context factory consumes.
//
// Two id shapes are produced:
//
//   - Random request ids: "req_" + uuid v4.
//   - Deterministic session ids: thread and run ids derived with uuid v5 from
//     a fixed namespace and the (user, operation) tuple, so the same tuple
//     always maps to the same session and distinct tuples never collide.
//
// The run id embeds the thread id's core under a fixed convention
// ("run_<threadCore>_<opCore>"), which downstream consistency checks rely on.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifier prefixes. The prefix names the id's role so a bare uuid in a log
// line is still attributable.
const (
	RequestPrefix = "req_"
	ThreadPrefix  = "thread_"
	RunPrefix     = "run_"
)

// sessionNamespace seeds uuid v5 derivation for session identifiers. Fixed
// forever: changing it silently remaps every (user, operation) tuple.
var sessionNamespace = uuid.MustParse("7a1d2c4e-9b3f-4f60-8a25-d1c0b5e7f219")

// SessionIDs is the set of identifiers minted for one deterministic session.
type SessionIDs struct {
	ThreadID  string
	RunID     string
	RequestID string
}

// Generator mints identifiers. Implementations must be safe for concurrent use.
type Generator interface {
	// NewRequestID returns a fresh unique request identifier.
	NewRequestID() (string, error)

	// SessionIDs derives the identifier set for a (user, operation) tuple.
	SessionIDs(userID, operation string) (SessionIDs, error)
}

// UUIDGenerator is the production Generator backed by google/uuid.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the production generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewRequestID returns "req_" + uuid v4.
func (g *UUIDGenerator) NewRequestID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate request id: %w", err)
	}
	return RequestPrefix + id.String(), nil
}

// SessionIDs derives thread and run ids from the (user, operation) tuple and
// mints a fresh request id. The thread id depends on the whole tuple; the run
// id is the thread core plus an operation-derived suffix so the convention
// "run id encodes thread id" holds by construction.
func (g *UUIDGenerator) SessionIDs(userID, operation string) (SessionIDs, error) {
	if userID == "" || operation == "" {
		return SessionIDs{}, fmt.Errorf("session ids require user id and operation, got (%q, %q)", userID, operation)
	}

	threadCore := uuid.NewSHA1(sessionNamespace, []byte("thread\x00"+userID+"\x00"+operation)).String()
	opCore := uuid.NewSHA1(sessionNamespace, []byte("op\x00"+operation)).String()

	requestID, err := g.NewRequestID()
	if err != nil {
		return SessionIDs{}, err
	}

	return SessionIDs{
		ThreadID:  ThreadPrefix + threadCore,
		RunID:     RunPrefix + threadCore + "_" + opCore[:8],
		RequestID: requestID,
	}, nil
}

// ThreadCore extracts the uuid core from a prefixed thread id. Returns the
// input unchanged when the prefix is absent.
func ThreadCore(threadID string) string {
	if len(threadID) > len(ThreadPrefix) && threadID[:len(ThreadPrefix)] == ThreadPrefix {
		return threadID[len(ThreadPrefix):]
	}
	return threadID
}
