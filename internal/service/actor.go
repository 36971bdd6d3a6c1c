package service

// Actor is whoever asked for a change. Its ID is what the ledger records.
type Actor struct {
	ID    string
	Name  string
	Email string
}

// SystemActor is used for changes not triggered by a user, such as seeding.
var SystemActor = Actor{ID: "system", Name: "System"}

func (a Actor) String() string {
	if a.ID != "" {
		return a.ID
	}
	if a.Email != "" {
		return a.Email
	}
	return SystemActor.ID
}

func (a Actor) displayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.String()
}

// Notifier receives post-commit events. The websocket hub is the production
// implementation.
type Notifier interface {
	Publish(payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(interface{}) {}
