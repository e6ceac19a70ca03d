package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/labelgrid/internal/config"
	"github.com/vk/labelgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

const translationHCL = `
project "SemanticTextualSimilarity_Scale5" {
  domain      = "Translation"
  description = "Rate translation similarity on a 0-4 scale"
  template    = "translation/semantic_textual_similarity_scale5.jsx"

  input {
    class  = "SentenceText"
    fields = ["input_text", "output_text"]
  }
  output {
    class  = "TranslationPair"
    fields = ["rating"]
  }
  annotation "rating" {
    from_name = ["rating"]
    to_name   = "output_text"
    type      = ["choices"]
  }
}
`

const audioHCL = `
project "SingleSpeakerAudioTranscriptionEditing" {
  domain   = "Audio"
  template = "audio/audio_transcription.jsx"

  input {
    class  = "SpeechConversation"
    fields = ["audio_url", "speaker_0_details", "speaker_1_details", "reference_raw_transcript"]
  }
  output {
    class  = "SpeechConversation"
    fields = ["transcribed_json"]
  }
  annotation "transcribed_json" {
    from_name = ["labels", "transcribed_json"]
    to_name   = "audio_url"
    type      = ["labels", "textarea"]
  }
}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func TestLoader_Load(t *testing.T) {
	// --- Arrange ---
	root := writeFiles(t, map[string]string{
		"registry/translation.hcl": translationHCL,
		"registry/audio/audio.hcl": audioHCL,
	})

	// --- Act ---
	model, converter, err := NewLoader().Load(testContext(), filepath.Join(root, "registry"))

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, converter)
	assert.Equal(t, []string{"SemanticTextualSimilarity_Scale5", "SingleSpeakerAudioTranscriptionEditing"}, model.ProjectNames())

	want := &config.Project{
		Name:        "SemanticTextualSimilarity_Scale5",
		Domain:      "Translation",
		Description: "Rate translation similarity on a 0-4 scale",
		Template:    "translation/semantic_textual_similarity_scale5.jsx",
		Input:       &config.Dataset{Class: "SentenceText", Fields: []string{"input_text", "output_text"}},
		Output:      &config.Dataset{Class: "TranslationPair", Fields: []string{"rating"}},
		Annotations: map[string]*config.Annotation{
			"rating": {Field: "rating", FromName: []string{"rating"}, ToName: "output_text", Type: []string{"choices"}},
		},
		Source: filepath.Join(root, "registry", "translation.hcl"),
	}
	if diff := cmp.Diff(want, model.Projects["SemanticTextualSimilarity_Scale5"]); diff != "" {
		t.Errorf("translated project mismatch (-want +got):\n%s", diff)
	}

	audio := model.Projects["SingleSpeakerAudioTranscriptionEditing"]
	assert.Empty(t, audio.Description)
	assert.Equal(t, []string{"labels", "transcribed_json"}, audio.Annotations["transcribed_json"].FromName)
}

func TestLoader_Load_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no files",
			files:   map[string]string{"readme.md": "nothing"},
			wantErr: "no .hcl registry files found",
		},
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `project "X" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "missing template",
			files:   map[string]string{"a.hcl": `project "X" { domain = "Audio" }`},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"a.hcl": `step "print" "A" {}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "duplicate project",
			files: map[string]string{
				"a.hcl": translationHCL,
				"b.hcl": translationHCL,
			},
			wantErr: `project "SemanticTextualSimilarity_Scale5" declared twice`,
		},
		{
			name: "duplicate annotation",
			files: map[string]string{"a.hcl": `
project "X" {
  domain   = "Audio"
  template = "x.jsx"
  annotation "a" {
    from_name = ["n"]
    to_name   = "t"
    type      = ["textarea"]
  }
  annotation "a" {
    from_name = ["n"]
    to_name   = "t"
    type      = ["textarea"]
  }
}`},
			wantErr: `declares annotation "a" twice`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := writeFiles(t, tc.files)
			_, _, err := NewLoader().Load(testContext(), root)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConverter_FromJSON(t *testing.T) {
	v, err := NewConverter().FromJSON([]byte(`{"language": "Tamil", "conversation_json": [{"id": "A", "sentences": ["s1"]}]}`))
	require.NoError(t, err)

	assert.True(t, v.Type().IsObjectType())
	assert.Equal(t, cty.StringVal("Tamil"), v.GetAttr("language"))
	first := v.GetAttr("conversation_json").Index(cty.NumberIntVal(0))
	assert.Equal(t, cty.StringVal("A"), first.GetAttr("id"))

	_, err = NewConverter().FromJSON([]byte(`{"broken":`))
	assert.ErrorContains(t, err, "invalid JSON data")
}

func TestConverter_ToCtyValue(t *testing.T) {
	c := NewConverter()

	typed, err := c.ToCtyValue(map[string]string{"input_text": "hello"})
	require.NoError(t, err)
	assert.True(t, typed.Equals(cty.MapVal(map[string]cty.Value{"input_text": cty.StringVal("hello")})).True())

	dynamic, err := c.ToCtyValue(map[string]any{"rows": []any{"a", 2.5}})
	require.NoError(t, err)
	rows := dynamic.GetAttr("rows")
	assert.Equal(t, 2, rows.LengthInt())
	assert.Equal(t, cty.StringVal("a"), rows.Index(cty.NumberIntVal(0)))

	null, err := c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, null)
}
