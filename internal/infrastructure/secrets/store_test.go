package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-story-studio/internal/config"
	"z-story-studio/internal/domain/entity"
)

var testKeys = map[entity.BackendFamily][]string{
	entity.FamilyChatCompletion: {"STUDIO_TEST_OPENAI_KEY"},
	entity.FamilyMessages:       {"STUDIO_TEST_ANTHROPIC_KEY", "STUDIO_TEST_ANTROPIC_KEY"},
}

func TestStoreReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte("STUDIO_TEST_OPENAI_KEY = \"from-file\"\n"), 0o600))

	store, err := NewStore(path, testKeys)
	require.NoError(t, err)

	key, ok := store.Credential(entity.FamilyChatCompletion)
	require.True(t, ok)
	assert.Equal(t, "from-file", key)

	t.Setenv("STUDIO_TEST_OPENAI_KEY", "from-env")
	key, ok = store.Credential(entity.FamilyChatCompletion)
	require.True(t, ok)
	assert.Equal(t, "from-env", key)
}

func TestStoreFallsBackToLegacyKey(t *testing.T) {
	store, err := NewStore("", testKeys)
	require.NoError(t, err)

	_, ok := store.Credential(entity.FamilyMessages)
	assert.False(t, ok)

	t.Setenv("STUDIO_TEST_ANTROPIC_KEY", "legacy")
	key, ok := store.Credential(entity.FamilyMessages)
	require.True(t, ok)
	assert.Equal(t, "legacy", key)
	assert.Equal(t, "STUDIO_TEST_ANTHROPIC_KEY", store.KeyName(entity.FamilyMessages))
}

func TestStoreMissingFileIsOptional(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "absent.toml"), testKeys)
	require.NoError(t, err)

	t.Setenv("STUDIO_TEST_OPENAI_KEY", "  ")
	_, ok := store.Credential(entity.FamilyChatCompletion)
	assert.False(t, ok, "blank values count as missing")
}

func TestStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.toml")
	require.NoError(t, os.WriteFile(path, []byte("= broken"), 0o600))

	_, err := NewStore(path, testKeys)
	assert.Error(t, err)
}

func TestNewStoreFromConfig(t *testing.T) {
	store, err := NewStoreFromConfig(&config.LLMConfig{
		Providers: map[string]config.ProviderConfig{
			config.ProviderOpenAI:    {SecretKeys: []string{"STUDIO_TEST_OPENAI_KEY"}},
			config.ProviderAnthropic: {SecretKeys: []string{"STUDIO_TEST_ANTHROPIC_KEY"}},
		},
	})
	require.NoError(t, err)

	t.Setenv("STUDIO_TEST_ANTHROPIC_KEY", "ant")
	key, ok := store.Credential(entity.FamilyMessages)
	require.True(t, ok)
	assert.Equal(t, "ant", key)
}
