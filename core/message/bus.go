package message

import "sort"

type envelope struct {
	msg Message
	seq int
}

// Bus carries messages between vehicles and the orchestrator. Each recipient
// has an inbox; draining returns messages ordered by (sender id ascending,
// emission order). A message stays in its inbox until the recipient drains
// it: the orchestrator drains its inbox in the same tick, while a vehicle
// reads what the orchestrator sent on its next step.
type Bus struct {
	inboxes map[int][]envelope
	seq     int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{inboxes: make(map[int][]envelope)}
}

// Send appends msg to the recipient's inbox.
func (b *Bus) Send(recipient int, msg Message) {
	b.seq++
	b.inboxes[recipient] = append(b.inboxes[recipient], envelope{msg: msg, seq: b.seq})
}

// Drain removes and returns the recipient's messages in delivery order.
func (b *Bus) Drain(recipient int) []Message {
	env := b.inboxes[recipient]
	if len(env) == 0 {
		return nil
	}
	delete(b.inboxes, recipient)
	sort.SliceStable(env, func(i, j int) bool {
		if env[i].msg.Sender() != env[j].msg.Sender() {
			return env[i].msg.Sender() < env[j].msg.Sender()
		}
		return env[i].seq < env[j].seq
	})
	out := make([]Message, len(env))
	for i, e := range env {
		out[i] = e.msg
	}
	return out
}

// Pending reports how many messages are queued for the recipient.
func (b *Bus) Pending(recipient int) int { return len(b.inboxes[recipient]) }

// Clear drops all undelivered messages.
func (b *Bus) Clear() {
	for k := range b.inboxes {
		delete(b.inboxes, k)
	}
}
