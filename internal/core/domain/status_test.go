package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		status   Status
		name     string
		terminal bool
	}{
		{StatusSubmitted, "submitted", false},
		{StatusWorking, "working", false},
		{StatusAborting, "aborting", false},
		{StatusCompleted, "completed", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.status.String())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}
