package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolError_Message(t *testing.T) {
	err := &ToolError{Tool: "bandit", ExitCode: 2}
	assert.Equal(t, "bandit exited with status 2", err.Error())
}

func TestAggregateError_Message(t *testing.T) {
	err := &AggregateError{Failed: []string{"mypy", "bandit"}, Total: 3}
	assert.Equal(t, "2 of 3 checks failed", err.Error())
	assert.Equal(t, 1, err.ExitStatus())
}
