package driving

import "github.com/custodia-labs/harvester/internal/core/domain"

// Listener observes a process instance.
//
// Listeners may be added at any time, including while the harvest is
// running. A listener only receives events emitted after it was added;
// earlier events are not replayed.
//
// Callbacks run on the harvest goroutine (or on the caller's goroutine for
// the status change emitted by Begin and Abort) and should return quickly.
type Listener interface {
	// OnStatusChange is called after every status transition.
	OnStatusChange(status domain.Status)

	// OnDataProcessed is called once per record taken from the source,
	// before it is offered to the destinations.
	OnDataProcessed(ref domain.DataReference)

	// OnInputError is called when the source fails. The run then ends.
	OnInputError(err *domain.DataInputError)

	// OnOutputError is called when one destination rejects one record.
	OnOutputError(err *domain.DataOutputError)
}

// NopListener ignores every event. Embed it to implement only some callbacks.
type NopListener struct{}

func (NopListener) OnStatusChange(domain.Status) {}
func (NopListener) OnDataProcessed(domain.DataReference) {}
func (NopListener) OnInputError(*domain.DataInputError) {}
func (NopListener) OnOutputError(*domain.DataOutputError) {}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StatusChange  func(domain.Status)
	DataProcessed func(domain.DataReference)
	InputError    func(*domain.DataInputError)
	OutputError   func(*domain.DataOutputError)
}

var _ Listener = ListenerFuncs{}

func (f ListenerFuncs) OnStatusChange(s domain.Status) {
	if f.StatusChange != nil {
		f.StatusChange(s)
	}
}

func (f ListenerFuncs) OnDataProcessed(ref domain.DataReference) {
	if f.DataProcessed != nil {
		f.DataProcessed(ref)
	}
}

func (f ListenerFuncs) OnInputError(err *domain.DataInputError) {
	if f.InputError != nil {
		f.InputError(err)
	}
}

func (f ListenerFuncs) OnOutputError(err *domain.DataOutputError) {
	if f.OutputError != nil {
		f.OutputError(err)
	}
}
