package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

// 重新投递的 running 任务必须继续执行,否则消息被确认后任务会永远停在 running
func TestShouldProcess(t *testing.T) {
	cases := []struct {
		status   domain.OptimizationStatus
		expected bool
	}{
		{domain.OptimizationStatusPending, true},
		{domain.OptimizationStatusRunning, true},
		{domain.OptimizationStatusCompleted, false},
		{domain.OptimizationStatusFailed, false},
		{domain.OptimizationStatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, shouldProcess(tc.status))
		})
	}
}
