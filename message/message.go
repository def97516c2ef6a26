// Package message implements the runtime's owned-payload envelope: a
// unique, monotonically increasing id plus a small set of user-supplied
// hooks that let box code control how its payload is copied, destroyed,
// and unpacked, without the runtime knowing anything about the payload
// type itself.
package message

import "sync/atomic"

// nextID is the process-wide monotonic message id counter. Grounded on the
// teacher's atomic cancellation flag in device/transfer.go, generalized
// from a single flag to a counter.
var nextID uint64

// Hooks bundles the copy/destroy/unpack capability a payload brings to the
// runtime. A payload composes in the subset it needs; nil hooks are valid
// and treated as no-ops (Copy falls back to sharing the pointer, Destroy
// becomes a no-op, Unpack returns the payload unchanged).
type Hooks struct {
	// Copy produces an independent duplicate of payload. Required for any
	// message that will pass through a decoupled-output (duplicating) read.
	Copy func(payload any) any

	// Destroy releases any resources the payload holds. Called at most
	// once per owned payload.
	Destroy func(payload any)

	// Unpack exposes the payload to consumer code in its native shape.
	// Most callers can skip this and type-assert Message.Payload directly;
	// Unpack exists for payloads that wrap or lazily decode their data.
	Unpack func(payload any) any
}

// Message is an owned envelope around a single payload. Exactly one owner
// holds a Message at a time; ownership transfers on a successful channel
// write and on a successful channel read (spec.md §3).
type Message struct {
	// ID is the unique, monotonic, process-wide identifier assigned at
	// creation. Copies receive a new ID; the payload's identity does not
	// follow it.
	ID uint64

	// Payload is the opaque user data. Size is informational only — the
	// runtime never dereferences Payload.
	Payload any
	Size    int

	hooks Hooks
}

// New creates a Message owning payload, with the given size (informational)
// and hooks. A zero Hooks value is valid.
func New(payload any, size int, hooks Hooks) *Message {
	return &Message{
		ID:      atomic.AddUint64(&nextID, 1),
		Payload: payload,
		Size:    size,
		hooks:   hooks,
	}
}

// Copy produces a new Message with its own ID and an independently owned
// payload (via Hooks.Copy if set, otherwise the same payload reference —
// appropriate only for immutable or read-only payloads).
func (m *Message) Copy() *Message {
	payload := m.Payload
	if m.hooks.Copy != nil {
		payload = m.hooks.Copy(m.Payload)
	}
	return &Message{
		ID:      atomic.AddUint64(&nextID, 1),
		Payload: payload,
		Size:    m.Size,
		hooks:   m.hooks,
	}
}

// Destroy releases the payload's resources via Hooks.Destroy, unless shallow
// is true, in which case the hook is skipped (a "shallow drop": the caller
// has already taken ownership of the payload by some other path).
func (m *Message) Destroy(shallow bool) {
	if m == nil {
		return
	}
	if !shallow && m.hooks.Destroy != nil {
		m.hooks.Destroy(m.Payload)
	}
}

// Unpack exposes the payload via Hooks.Unpack if set, otherwise returns the
// raw payload.
func (m *Message) Unpack() any {
	if m.hooks.Unpack != nil {
		return m.hooks.Unpack(m.Payload)
	}
	return m.Payload
}
