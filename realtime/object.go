package realtime

// object holds the state shared by every collaborative object.
// model is a back-reference only: the Model owns the object, not the other way round.
type object struct {
	model *Model
	id    string
}

// ID returns the object's id.
func (o *object) ID() string {
	return o.id
}

// baseEvent builds the envelope of an event fired by target.
func (o *object) baseEvent(t EventType, target CollaborativeObject, userID, sessionID string) BaseModelEvent {
	return BaseModelEvent{
		Type:      t,
		Target:    target,
		SessionID: sessionID,
		UserID:    userID,
		IsLocal:   o.model.bridge.isLocalSession(sessionID),
	}
}

// fire publishes an event of type t for the owning document.
func (o *object) fire(t EventType, event any) {
	o.model.bridge.publish(t, event)
}

// indexed is implemented by objects an IndexReference can point into.
type indexed interface {
	CollaborativeObject
	length() int
}
