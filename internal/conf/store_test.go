package conf

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bwpull/internal/errors"
)

// cannedPrompter answers prompts from a fixed map and records the labels asked.
type cannedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *cannedPrompter) Prompt(label string) (string, error) {
	p.asked = append(p.asked, label)
	return p.answers[label], nil
}

func noEnv(string) string { return "" }

func newTestStore(t *testing.T, fs afero.Fs, opts ...StoreOption) *Store {
	t.Helper()
	base := []StoreOption{WithFs(fs), WithEnvLookup(noEnv), WithPrompter(PrompterFunc(func(label string) (string, error) {
		t.Fatalf("unexpected prompt %q", label)
		return "", nil
	}))}
	return NewStore("config.json", append(base, opts...)...)
}

func TestEnsure_BootstrapWritesIndentedJSON(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	prompter := &cannedPrompter{answers: map[string]string{
		PromptToken:   "tok-123",
		PromptStation: " 4242 ",
	}}
	store := newTestStore(t, fs, WithPrompter(prompter))

	cfg, err := store.Ensure()
	require.NoError(t, err)
	assert.Equal(t, &Config{Token: "tok-123", Station: "4242"}, cfg)
	assert.Equal(t, []string{PromptToken, PromptStation}, prompter.asked, "token is asked before station")

	data, err := afero.ReadFile(fs, "config.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"token\": \"tok-123\",\n    \"station\": \"4242\"\n}", string(data))

	info, err := fs.Stat("config.json")
	require.NoError(t, err)
	assert.Equal(t, uint32(ConfigFilePermissions), uint32(info.Mode().Perm()))

	// Second run reads the file without prompting
	again, err := newTestStore(t, fs).Ensure()
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestEnsure_ExistingFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(`{"token":"abc","station":"77"}`), 0o600))

	cfg, err := newTestStore(t, fs).Ensure()
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "77", cfg.Station)
}

func TestEnsure_MalformedIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"token": "abc", `},
		{"missing station", `{"token": "abc"}`},
		{"empty token", `{"token": "", "station": "1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "config.json", []byte(tt.content), 0o600))

			_, err := newTestStore(t, fs).Ensure()
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), "got %v", err)
			assert.NotErrorIs(t, err, ErrConfigMissing)
		})
	}
}

func TestEnsure_EnvSkipsPrompt(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	env := map[string]string{EnvToken: "envtok", EnvStation: "envstation"}
	store := newTestStore(t, fs, WithEnvLookup(func(k string) string { return env[k] }))

	cfg, err := store.Ensure()
	require.NoError(t, err)
	assert.Equal(t, &Config{Token: "envtok", Station: "envstation"}, cfg)

	exists, err := afero.Exists(fs, "config.json")
	require.NoError(t, err)
	assert.False(t, exists, "nothing is written when the environment supplies credentials")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(`{"token":"filetok","station":"1"}`), 0o600))

	store := newTestStore(t, fs, WithEnvLookup(func(k string) string {
		if k == EnvToken {
			return "envtok"
		}
		return ""
	}))

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "envtok", cfg.Token)
	assert.Equal(t, "1", cfg.Station)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.json", []byte(`{"token":"t","station":"1"}`), 0o600))

	store := newTestStore(t, fs, WithEnvLookup(func(k string) string {
		if k == EnvStation {
			return "12 34"
		}
		return ""
	}))

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvStation)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := newTestStore(t, afero.NewMemMapFs()).Load()
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestEnsure_BootstrapRejectsEmptyAnswers(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	prompter := &cannedPrompter{answers: map[string]string{PromptToken: "tok"}}

	_, err := newTestStore(t, fs, WithPrompter(prompter)).Ensure()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBootstrap))

	exists, _ := afero.Exists(fs, "config.json")
	assert.False(t, exists)
}

func TestSave_NestedPath(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := NewStore("/etc/bwpull/station.json", WithFs(fs), WithEnvLookup(noEnv))

	require.NoError(t, store.Save(&Config{Token: "a<b", Station: "9"}))

	data, err := afero.ReadFile(fs, "/etc/bwpull/station.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"token": "a<b"`)

	files, err := afero.ReadDir(fs, "/etc/bwpull")
	require.NoError(t, err)
	require.Len(t, files, 1, "temporary file must be renamed away")
	assert.False(t, strings.HasPrefix(files[0].Name(), "config-"))
}
