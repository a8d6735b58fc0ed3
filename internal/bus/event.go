package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds. Subscribers filter on the namespace prefix before the dot.
const (
	SessionRestored = "session.restored"
	SessionLogin    = "session.login"
	SessionLogout   = "session.logout"
	SessionSwitched = "session.switched"
	SessionExpired  = "session.expired"

	NetOnline  = "net.online"
	NetOffline = "net.offline"

	InvoiceCommitted = "invoice.committed"
	InvoiceQueued    = "invoice.queued"

	SyncStarted  = "sync.started"
	SyncFinished = "sync.finished"

	NotifySuccess = "notify.success"
	NotifyError   = "notify.error"
)

// Notice is the payload of notify.* events: a message meant for the user.
type Notice struct {
	Text string
}

// Notify publishes a user-facing notice. Safe to call on a nil bus.
func (b *Bus) Notify(kind, text string) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: Notice{Text: text}})
}

// Emit publishes an event stamped with the current time. Safe to call on a nil bus.
func (b *Bus) Emit(kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
