package driving

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

func TestListenerFuncs_NilFieldsAreSkipped(t *testing.T) {
	var l Listener = ListenerFuncs{}
	assert.NotPanics(t, func() {
		l.OnStatusChange(domain.StatusWorking)
		l.OnDataProcessed(domain.NewDataReference("a", "mem://a", "IN"))
		l.OnInputError(domain.NewDataInputError("IN", errors.New("x")))
		l.OnOutputError(domain.NewDataOutputError("OUT", domain.DataReference{}, errors.New("y")))
	})
}

func TestListenerFuncs_Dispatch(t *testing.T) {
	var got []string
	l := ListenerFuncs{
		StatusChange:  func(s domain.Status) { got = append(got, s.String()) },
		DataProcessed: func(r domain.DataReference) { got = append(got, r.ID()) },
		InputError:    func(e *domain.DataInputError) { got = append(got, e.Source) },
		OutputError:   func(e *domain.DataOutputError) { got = append(got, e.Destination) },
	}

	l.OnStatusChange(domain.StatusCompleted)
	l.OnDataProcessed(domain.NewDataReference("rec", "mem://rec", "IN"))
	l.OnInputError(domain.NewDataInputError("IN", errors.New("x")))
	l.OnOutputError(domain.NewDataOutputError("OUT", domain.DataReference{}, errors.New("y")))

	assert.Equal(t, []string{"completed", "rec", "IN", "OUT"}, got)
}

func TestNopListener(t *testing.T) {
	var l Listener = NopListener{}
	assert.NotPanics(t, func() { l.OnStatusChange(domain.StatusAborting) })
}
