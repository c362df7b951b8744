package bus

import (
	"sync"

	"github.com/Noah018dev/coil/coil"
	"github.com/Noah018dev/coil/coil/internal/registry"
)

// Message is a single delivery: the Group it was sent to and its
// (possibly transformed) content.
type Message struct {
	Group   *Group
	Content any
}

// SentInGroup is an Extension's verdict on one send into its bound
// Group: whether to cancel the send outright, which additional Groups to
// forward the (possibly transformed) content to, and how to transform
// the content before delivery. The zero value delivers unmodified with
// no cancellation or forwarding.
type SentInGroup struct {
	Cancel        bool
	ForwardTo     []*Group
	DataTransform func(any) any
}

func (r SentInGroup) transform(content any) any {
	if r.DataTransform == nil {
		return content
	}
	return r.DataTransform(content)
}

// subscriptions is the process-global Group -> set<Mailbox> table.
var subscriptions = registry.NewSetMap[*Group, *Mailbox]()

// Mailbox is a subscriber's inbox: a FIFO-appended, LIFO-popped queue of
// Messages (Get returns the most recently delivered message first),
// woken by a Notification when empty.
type Mailbox struct {
	mu           sync.Mutex
	messages     []*Message
	notification *coil.Notification
}

// NewMailbox returns an empty, unsubscribed Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{notification: coil.NewNotification()}
}

// Subscribe registers box to receive every Send to g (and, per the
// routing rules in Send, to g's ancestor/descendant groups unless
// excluded).
func (box *Mailbox) Subscribe(g *Group) {
	subscriptions.Add(g, box)
}

// Unsubscribe removes box from g's delivery set.
func (box *Mailbox) Unsubscribe(g *Group) {
	subscriptions.Remove(g, box)
}

// Get blocks until at least one Message is queued, then returns the most
// recently delivered one.
func (box *Mailbox) Get() *Message {
	box.mu.Lock()
	empty := len(box.messages) == 0
	box.mu.Unlock()

	if empty {
		box.notification.Wait()
	}

	box.mu.Lock()
	defer box.mu.Unlock()
	if len(box.messages) == 0 {
		return nil
	}
	last := len(box.messages) - 1
	msg := box.messages[last]
	box.messages = box.messages[:last]
	return msg
}

func (box *Mailbox) deliver(msg *Message) {
	box.mu.Lock()
	box.messages = append(box.messages, msg)
	box.mu.Unlock()
	box.notification.NotifyAll()
}

// Send delivers content into g: to every Mailbox subscribed to g, then
// recursing to g's parent and children, honoring any Extension bound to
// the nearest ancestor (including g itself) of g. The originating call
// (not its recursive fan-out) reports one telemetry event.
func Send(g *Group, content any) {
	subscriberCount := len(subscriptions.Members(g))
	cancelled := sendInternal(g, content)
	emitSend(g, subscriberCount, cancelled)
}

// sendInternal implements the recursive routing algorithm and reports
// whether the originating Group's own delivery was cancelled by a bound
// Extension.
func sendInternal(g *Group, content any, exclude ...*Group) bool {
	if containsGroup(exclude, g) {
		return false
	}
	if !subscriptions.Known(g) {
		// A group that has never had a direct subscriber never
		// propagates, even to its own parent/children, regardless of
		// their topology.
		return false
	}

	response := SentInGroup{}
	if binding, ok := nearestExtension(g); ok {
		response = binding.ext.MessageSentInGroup(content)
	}

	content = response.transform(content)

	if !response.Cancel {
		for _, mbox := range subscriptions.Members(g) {
			mbox.deliver(&Message{Group: g, Content: content})
		}

		nextExclude := append(append([]*Group{}, exclude...), g)

		if g.parent != nil && !containsGroup(exclude, g.parent) {
			sendInternal(g.parent, content, nextExclude...)
		}

		for _, child := range g.Children() {
			if containsGroup(exclude, child) {
				continue
			}
			sendInternal(child, content, nextExclude...)
		}
	}

	for _, other := range response.ForwardTo {
		sendInternal(other, content, g)
	}

	return response.Cancel
}

func containsGroup(groups []*Group, g *Group) bool {
	for _, candidate := range groups {
		if candidate == g {
			return true
		}
	}
	return false
}
