package poll_test

import (
	"testing"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		status   poll.Status
		name     string
		terminal bool
	}{
		{poll.Pending, "Pending", false},
		{poll.Running, "Running", false},
		{poll.Succeeded, "Succeeded", true},
		{poll.Failed, "Failed", true},
		{poll.Cancelled, "Cancelled", true},
		{poll.TimedOut, "TimedOut", true},
		{poll.Status(42), "Unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status.String(), tt.name)
			assert.Equal(t, tt.status.IsTerminal(), tt.terminal)
		})
	}
}
