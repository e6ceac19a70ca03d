package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/vk/labelgrid/internal/hcl_adapter"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

const testRegistry = `
project "ConversationTranslation" {
  domain   = "Translation"
  template = "layouts/conversation_translation.jsx"

  input {
    class  = "Conversation"
    fields = ["conversation_json", "language"]
  }
  annotation "conversation_json" {
    from_name = ["output_{{i}}_{{j}}"]
    to_name   = "dialogue_{{i}}_{{j}}"
    type      = ["textarea"]
    value     = "$conversation_json[{{i}}].sentences[{{j}}]"
  }
}

project "AudioTranscription" {
  domain   = "Audio"
  template = "layouts/audio_transcription.jsx"

  input {
    class  = "SpeechConversation"
    fields = ["audio_url", "speaker_0_details", "speaker_1_details", "reference_raw_transcript"]
  }
  annotation "transcribed_json" {
    from_name = ["labels", "transcribed_json"]
    to_name   = "audio_url"
    type      = ["labels", "textarea"]
  }
}
`

// writeWorkspace lays out a registry directory with the test layouts and
// returns its path.
func writeWorkspace(t *testing.T, registry string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "registry.hcl"), []byte(registry), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "layouts"), 0o755))
	for _, name := range []string{"conversation_translation.jsx", "audio_transcription.jsx"} {
		src, err := os.ReadFile(filepath.Join("..", "layout", "testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(root, "layouts", name), src, 0o644))
	}
	return root
}

// SetupAppTest creates an App over the test registry. mutate may adjust the
// configuration before validation.
func SetupAppTest(t *testing.T, mutate func(*Config)) (*App, *bytes.Buffer, *SafeBuffer) {
	t.Helper()

	cfg := Config{
		RegistryPath: writeWorkspace(t, testRegistry),
		LogLevel:     "debug",
		LogFormat:    "text",
		WorkerCount:  4,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &SafeBuffer{}
	a := NewApp(out, logs, validated, hcl_adapter.NewLoader())
	t.Cleanup(func() {
		a.Close()
		if os.Getenv("LABELGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}

func testContext(a *App) context.Context {
	return ctxlog.WithLogger(context.Background(), a.logger)
}
