package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ansera/internal/core/domain"
)

func TestSettingsCmd_DefaultsToList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Current Settings")
}

func TestSettingsListCmd_ShowsDefaults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "[Retrieval]")
	assert.Contains(t, output, "search.lexical_weight: 0.4")
	assert.Contains(t, output, "search.vector_weight: 0.6")
	assert.Contains(t, output, "[Answer]")
	assert.Contains(t, output, "answer.top_k: 5")
	assert.Contains(t, output, "[Scope]")
	assert.Contains(t, output, "scope.extra_keywords: (none)")
	assert.Contains(t, output, "[Embedding]")
	assert.Contains(t, output, "Model: hashed-v1")
	assert.Contains(t, output, "[LLM]")
	assert.Contains(t, output, "not configured (answers stay extractive)")
	assert.Contains(t, output, "[Store]")
	assert.Contains(t, output, "store.backend: memory")
	assert.Contains(t, output, "Configuration is valid.")
}

func TestSettingsListCmd_WarnsOnInvalidConfig(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.validateErr = errors.New("lexical weight must not be negative")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Warning: lexical weight must not be negative")
	assert.Contains(t, output, "fix configuration issues")
	assert.NotContains(t, output, "Configuration is valid.")
}

func TestSettingsGetCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "get", "answer.top_k"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, "5\n", buf.String())
}

func TestSettingsGetCmd_UnknownKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "get", "search.bogus"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown settings key "search.bogus"`)
}

func TestSettingsSetCmd_PersistsValue(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "set", "search.min_score", "0.1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.True(t, mocks.settings.saved)
	assert.InDelta(t, 0.1, mocks.settings.settings.Retrieval.MinScore, 1e-9)
	assert.Contains(t, buf.String(), "search.min_score = 0.1")
}

func TestSettingsSetCmd_Keywords(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "set", "scope.extra_keywords", "staff, headcount"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Equal(t, []string{"staff", "headcount"}, mocks.settings.settings.Scope.ExtraKeywords)
}

func TestSettingsSetCmd_InvalidInteger(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "answer.top_k", "lots"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `invalid integer "lots"`)
	assert.False(t, mocks.settings.saved, "nothing should be saved on a parse error")
}

func TestSettingsSetCmd_RejectsNegativeWeight(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "search.lexical_weight", "-1"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestSettingsSetCmd_RejectsNonEmbeddingProvider(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "embedding.provider", "anthropic"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `provider "anthropic" cannot embed text`)
}

func TestSettingsWeightsCmd(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "weights", "0.5", "0.5"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.InDelta(t, 0.5, mocks.settings.fusionLexical, 1e-9)
	assert.InDelta(t, 0.5, mocks.settings.fusionVector, 1e-9)
	assert.Contains(t, buf.String(), "Fusion weights set: lexical=0.5 vector=0.5")
}

func TestSettingsWeightsCmd_InvalidNumber(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "weights", "heavy", "0.5"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `invalid lexical weight "heavy"`)
}

func TestSettingsEmbeddingCmd_ConfiguresLocalProvider(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	// Choice 1 is the local provider, blank line accepts the default model.
	rootCmd.SetIn(strings.NewReader("1\n\n"))
	rootCmd.SetArgs([]string{"settings", "embedding"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderLocal, mocks.settings.embProvider)
	assert.Equal(t, "hashed-v1", mocks.settings.embModel)
	assert.Empty(t, mocks.settings.embKey)
	output := buf.String()
	assert.Contains(t, output, "Embedding provider configured")
	assert.Contains(t, output, "Run 'ansera reindex'")
}

func TestSettingsEmbeddingCmd_ValidationFailure(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.validateEmbErr = errors.New("dial tcp: connection refused")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader("2\n\n"))
	rootCmd.SetArgs([]string{"settings", "embedding"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "embedding configuration validation failed")
	assert.Contains(t, buf.String(), "FAILED: dial tcp")
}

func TestSettingsLLMCmd_ConfiguresOllamaProvider(t *testing.T) {
	mocks, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	// Choice 1 is Ollama, which needs no API key.
	rootCmd.SetIn(strings.NewReader("1\n\n"))
	rootCmd.SetArgs([]string{"settings", "llm"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, mocks.settings.llmProvider)
	assert.Equal(t, "llama3.2", mocks.settings.llmModel)
	assert.Empty(t, mocks.settings.llmKey)
	assert.Contains(t, buf.String(), "LLM provider configured")
}

func TestSettingsCmd_ServiceNotConfigured(t *testing.T) {
	oldSettings := settingsService
	settingsService = nil
	defer func() {
		settingsService = oldSettings
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestSettableKeys_AllResolve(t *testing.T) {
	defaults := domain.DefaultAppSettings()
	for _, key := range settableKeys {
		_, ok := settingValue(&defaults, key)
		assert.True(t, ok, "settable key %q should be readable", key)
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Simple list",
			input:    "staff,headcount",
			expected: []string{"staff", "headcount"},
		},
		{
			name:     "Whitespace trimmed",
			input:    " staff , headcount ",
			expected: []string{"staff", "headcount"},
		},
		{
			name:     "Blank entries dropped",
			input:    "staff,,headcount,",
			expected: []string{"staff", "headcount"},
		},
		{
			name:     "Empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "Single keyword",
			input:    "org",
			expected: []string{"org"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitKeywords(tt.input))
		})
	}
}

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}
