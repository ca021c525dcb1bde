//go:build integration

package steps

import (
	"fmt"
)

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses     []string
	confirmResponses   []bool
	pathResponses      []string
	multilineResponses []string
	inputIndex         int
	confirmIndex       int
	pathIndex          int
	multilineIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Path(message string, suggest func(toComplete string) []string) (string, error) {
	if m.pathIndex >= len(m.pathResponses) {
		return "", fmt.Errorf("no more path responses available for message: %s", message)
	}
	response := m.pathResponses[m.pathIndex]
	m.pathIndex++
	return response, nil
}

func (m *MockPrompter) Multiline(message string) (string, error) {
	if m.multilineIndex >= len(m.multilineResponses) {
		return "", nil
	}
	response := m.multilineResponses[m.multilineIndex]
	m.multilineIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}
