// Package testutil provides testing utilities for keyops.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockCommandExecutor provides a configurable mock for testing code that
// shells out to sops, gpg, or age.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout   []byte
	Stderr   []byte
	Err      error
	ExitCode int // Used to simulate exit codes when Err is nil
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command string
	Args    []string
	Context context.Context
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Record the call
	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command: name,
		Args:    args,
		Context: ctx,
	})

	key := m.buildKey(name, args)

	// Try exact match first
	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}

	// Try partial/prefix matching for flexibility
	for pattern, resp := range m.Responses {
		if m.matchesPattern(key, pattern) {
			return resp.Stdout, resp.Stderr, resp.Err
		}
	}

	if m.DefaultResponse != nil {
		return m.DefaultResponse.Stdout, m.DefaultResponse.Stderr, m.DefaultResponse.Err
	}

	if m.StrictMode {
		return nil, nil, fmt.Errorf("mock: no response configured for command: %s", key)
	}

	// Non-strict mode returns empty success
	return []byte{}, []byte{}, nil
}

// buildKey creates a lookup key from command and arguments.
func (m *MockCommandExecutor) buildKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// matchesPattern checks if the command key matches a pattern.
// Supports simple prefix matching for flexible response configuration.
func (m *MockCommandExecutor) matchesPattern(key, pattern string) bool {
	// Support wildcard patterns with "*"
	if strings.Contains(pattern, "*") {
		return strings.HasPrefix(key, strings.Split(pattern, "*")[0])
	}

	// Check if key starts with pattern (allows additional args)
	return strings.HasPrefix(key, pattern)
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddErrorResponse adds an error response for a command pattern.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout:   []byte{},
		Stderr:   []byte(errMsg),
		Err:      fmt.Errorf("exit status %d: %s", exitCode, errMsg),
		ExitCode: exitCode,
	})
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// Reset clears all recorded calls and responses.
func (m *MockCommandExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = make(map[string]MockResponse)
	m.RecordedCalls = make([]RecordedCall, 0)
	m.DefaultResponse = nil
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalled verifies that a specific command was never called.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) > 0 {
		t.Error("expected command", commandName, "to not be called, but it was called", len(calls), "times")
		return false
	}
	return true
}

// SopsMockResponses provides pre-configured responses for the sops CLI.
type SopsMockResponses struct{}

// DecryptOK returns a successful decrypt-check response.
func (SopsMockResponses) DecryptOK(plaintext string) MockResponse {
	return MockResponse{
		Stdout: []byte(plaintext),
		Err:    nil,
	}
}

// DecryptNoKey returns the response for a file no identity can open.
func (SopsMockResponses) DecryptNoKey() MockResponse {
	return MockResponse{
		Stderr:   []byte("Failed to get the data key required to decrypt the SOPS file.\n\nGroup 0: FAILED"),
		Err:      fmt.Errorf("exit status 128"),
		ExitCode: 128,
	}
}

// NotASopsFile returns the response for a plaintext file.
func (SopsMockResponses) NotASopsFile() MockResponse {
	return MockResponse{
		Stderr:   []byte("sops metadata not found"),
		Err:      fmt.Errorf("exit status 1"),
		ExitCode: 1,
	}
}

// UpdateKeysOK returns a successful rekey response.
func (SopsMockResponses) UpdateKeysOK(path string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf("File %s updated\n", path)),
		Err:    nil,
	}
}

// UpdateKeysNoRule returns the response when no creation rule matches.
func (SopsMockResponses) UpdateKeysNoRule() MockResponse {
	return MockResponse{
		Stderr:   []byte("error: no matching creation rules found"),
		Err:      fmt.Errorf("exit status 1"),
		ExitCode: 1,
	}
}

// GpgMockResponses provides pre-configured responses for the gpg CLI.
type GpgMockResponses struct{}

// ListKeysColons returns a colon-delimited listing with one primary key and
// one subkey. expires is epoch seconds, or empty for a non-expiring key.
func (GpgMockResponses) ListKeysColons(keyID, uid, expires string) MockResponse {
	listing := fmt.Sprintf(
		"tru::1:1700000000:0:3:1:5\n"+
			"pub:u:255:22:%s:1600000000:%s::u:::scESC:::::ed25519:::0:\n"+
			"fpr:::::::::AAAAAAAAAAAAAAAAAAAAAAAA%s:\n"+
			"uid:u::::1600000000::ABCDEF0123456789::%s::::::::::0:\n"+
			"sub:u:255:18:AAAA000011112222:1600000000:%s:::::e:::::cv25519::\n"+
			"fpr:::::::::BBBBBBBBBBBBBBBBBBBBBBBBAAAA000011112222:\n",
		keyID, expires, keyID, uid, expires)
	return MockResponse{Stdout: []byte(listing)}
}
