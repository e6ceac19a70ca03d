package expand

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/labelgrid/internal/binding"
	"github.com/vk/labelgrid/internal/hcl_adapter"
	"github.com/vk/labelgrid/internal/layout"
)

func loadTemplate(t *testing.T, name string) *layout.Node {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "layout", "testdata", name))
	require.NoError(t, err)
	root, err := layout.Parse(name, src)
	require.NoError(t, err)
	return root
}

func parse(t *testing.T, src string) *layout.Node {
	t.Helper()
	root, err := layout.Parse(t.Name(), []byte(src))
	require.NoError(t, err)
	return root
}

func data(t *testing.T, js string) *binding.Context {
	t.Helper()
	v, err := hcl_adapter.NewConverter().FromJSON([]byte(js))
	require.NoError(t, err)
	c, err := binding.ContextFromValue(v)
	require.NoError(t, err)
	return c
}

// elements returns all elements in document order.
func elements(n *layout.Node) []*layout.Node {
	var out []*layout.Node
	if n.Kind == layout.KindElement {
		out = append(out, n)
	}
	for _, ch := range n.Children {
		out = append(out, elements(ch)...)
	}
	return out
}

func attrValues(n *layout.Node, tag, attr string) []string {
	var out []string
	for _, el := range elements(n) {
		if el.Tag != tag {
			continue
		}
		if v, ok := el.Attr(attr); ok {
			out = append(out, v)
		}
	}
	return out
}

func assertResolved(t *testing.T, n *layout.Node) {
	t.Helper()
	if n.Kind == layout.KindGuard || n.Kind == layout.KindRepeater {
		t.Fatalf("output still contains a %s at line %d", n.Kind, n.Pos.Line)
	}
	for _, a := range n.Attrs {
		assert.Empty(t, binding.Find(a.Value), "attribute %s=%q still holds a binding", a.Name, a.Value)
		assert.NotContains(t, a.Value, "{{", "attribute %s=%q still holds an index token", a.Name, a.Value)
	}
	for _, ch := range n.Children {
		assertResolved(t, ch)
	}
}

func TestRender_GuardOmitsMissingSpeaker(t *testing.T) {
	tmpl := loadTemplate(t, "audio_transcription.jsx")
	ctx := data(t, `{"speaker_0_details": "Female, 30", "audio_url": "https://example.org/a.wav"}`)

	out, report := Render(tmpl, ctx)
	assertResolved(t, out)

	assert.Equal(t, []string{"Speaker 0"}, attrValues(out, "Label", "value"))
	assert.Equal(t, []string{"speaker_0_details"}, attrValues(out, "Text", "name"))
	assert.Equal(t, []string{"Female, 30"}, attrValues(out, "Text", "value"))
	assert.Equal(t, []string{"https://example.org/a.wav"}, attrValues(out, "AudioPlus", "value"))
	assert.NotContains(t, attrValues(out, "Header", "value"), "Reference Transcript")
	assert.True(t, report.Empty(), "false guards are not issues: %v", report.Issues)
}

func TestRender_GuardEmitsAllWhenPresent(t *testing.T) {
	tmpl := loadTemplate(t, "audio_transcription.jsx")
	ctx := data(t, `{
		"speaker_0_details": "A",
		"speaker_1_details": "B",
		"reference_raw_transcript": "hello there",
		"audio_url": "a.wav"
	}`)

	out, report := Render(tmpl, ctx)
	assert.Equal(t, []string{"Speaker 0", "Speaker 1"}, attrValues(out, "Label", "value"))
	assert.Equal(t, []string{"speaker_0_details", "speaker_1_details", "reference_raw_transcript"}, attrValues(out, "Text", "name"))
	assert.Equal(t, []string{"Speaker Details", "Provide Transcription", "Reference Transcript"}, attrValues(out, "Header", "value"))
	assert.True(t, report.Empty())
}

func TestRender_NestedConversation(t *testing.T) {
	tmpl := loadTemplate(t, "conversation_translation.jsx")
	ctx := data(t, `{
		"language": "Tamil",
		"conversation_json": [
			{"id": "A", "sentences": ["s1", "s2"]},
			{"id": "B", "sentences": ["s3"]}
		]
	}`)

	out, report := Render(tmpl, ctx)
	require.True(t, report.Empty(), "unexpected issues: %v", report.Issues)
	assertResolved(t, out)

	names := attrValues(out, "Text", "name")
	assert.Equal(t, []string{
		"speaker_0", "dialogue_0_0", "dialogue_0_1",
		"speaker_1", "dialogue_1_0",
		"output_speaker_0", "output_speaker_1",
	}, names)
	assert.Equal(t, []string{"A", "s1", "s2", "B", "s3", "A", "B"}, attrValues(out, "Text", "value"))

	assert.Equal(t, []string{"output_0_0", "output_0_1", "output_1_0"}, attrValues(out, "TextArea", "name"))
	assert.Equal(t, []string{"dialogue_0_0", "dialogue_0_1", "dialogue_1_0"}, attrValues(out, "TextArea", "toName"))
	assert.Equal(t, []string{"Source Conversation", "Tamil Translation"}, attrValues(out, "Header", "value"))
}

func TestExpand_LengthPreserving(t *testing.T) {
	tmpl := parse(t, `<Repeater on="$items" indexFlag="{{i}}"><Text name="item_{{i}}" value="$items[{{i}}]"/></Repeater>`)
	rep := tmpl.Children[0]

	for _, n := range []int{0, 1, 5} {
		items := "[" + strings.TrimSuffix(strings.Repeat(`"x",`, n), ",") + "]"

		clones, issue := Expand(rep, data(t, `{"items": `+items+`}`))
		require.Nil(t, issue)
		require.Len(t, clones, n)
		for i, clone := range clones {
			name, _ := clone.Children[0].Attr("name")
			value, _ := clone.Children[0].Attr("value")
			assert.Equal(t, "item_"+strconv.Itoa(i), name)
			assert.Equal(t, "$items["+strconv.Itoa(i)+"]", value)
		}
	}
}

func TestExpand_MissingSourceIsEmpty(t *testing.T) {
	tmpl := parse(t, `<View><Repeater on="$conversation_json" indexFlag="{{i}}"><Text name="t_{{i}}"/></Repeater><Header value="after"/></View>`)

	clones, issue := Expand(tmpl.Children[0].Children[0], data(t, `{}`))
	assert.Empty(t, clones)
	require.NotNil(t, issue)
	assert.Equal(t, MissingBinding, issue.Kind)

	out, report := Render(tmpl, data(t, `{}`))
	view := out.Children[0]
	require.Len(t, view.Children, 1)
	assert.Equal(t, "Header", view.Children[0].Tag)
	assert.Equal(t, 1, report.Count(MissingBinding))
}

func TestExpand_NonCollectionSource(t *testing.T) {
	tmpl := parse(t, `<Repeater on="$items" indexFlag="{{i}}"><Text name="t_{{i}}"/></Repeater>`)

	for _, js := range []string{`{"items": "abc"}`, `{"items": {"a": 1}}`, `{"items": 3}`} {
		clones, issue := Expand(tmpl.Children[0], data(t, js))
		assert.Empty(t, clones)
		require.NotNil(t, issue, js)
		assert.Equal(t, MalformedRepeaterSource, issue.Kind, js)
	}
}

func TestRender_WholeBindingOmitsElement(t *testing.T) {
	tmpl := parse(t, `<View><Text name="input_text" value="$input_text"/><Text name="output_text" value="$output_text"/></View>`)

	out, report := Render(tmpl, data(t, `{"output_text": "translated"}`))
	assert.Equal(t, []string{"output_text"}, attrValues(out, "Text", "name"))
	require.Len(t, report.Issues, 1)
	assert.Equal(t, MissingBinding, report.Issues[0].Kind)
	assert.True(t, report.Issues[0].Omitted)
	assert.Equal(t, "$input_text", report.Issues[0].Binding)
}

func TestRender_EmbeddedBindingBecomesEmpty(t *testing.T) {
	tmpl := parse(t, `<View><Header value="$language Sentence"/>Reviewing $language</View>`)

	out, report := Render(tmpl, data(t, `{}`))
	assert.Equal(t, []string{" Sentence"}, attrValues(out, "Header", "value"))
	view := out.Children[0]
	require.Len(t, view.Children, 2)
	assert.Equal(t, "Reviewing ", view.Children[1].Text)
	assert.Equal(t, 2, report.Count(MissingBinding))
	for _, i := range report.Issues {
		assert.False(t, i.Omitted)
	}
}

func TestRender_NonStringValues(t *testing.T) {
	tmpl := parse(t, `<View><Rating name="r" maxRating="$max" toName="t"/><Text name="t" value="$meta"/></View>`)
	out, report := Render(tmpl, data(t, `{"max": 5, "meta": {"a": true}}`))

	assert.True(t, report.Empty())
	assert.Equal(t, []string{"5"}, attrValues(out, "Rating", "maxRating"))
	assert.Equal(t, []string{`{"a":true}`}, attrValues(out, "Text", "value"))
}

func TestRender_StaticTemplatePassesThrough(t *testing.T) {
	tmpl := parse(t, `
<View>
  <Style>.ant-input { font-size: large; }</Style>
  <Header size="3" value="Rating"/>
  <Choices name="rating" toName="output_text" choice="single-radio">
    <Choice alias="0" value="0, dissimilar"/>
    <Choice alias="1" value="1, similar"/>
  </Choices>
</View>`)

	out, report := Render(tmpl, data(t, `{"unused": "x"}`))
	assert.True(t, report.Empty())
	if diff := cmp.Diff(tmpl, out); diff != "" {
		t.Errorf("static template must render unchanged (-want +got):\n%s", diff)
	}
}

func TestRender_Idempotent(t *testing.T) {
	tmpl := loadTemplate(t, "conversation_translation.jsx")
	before := layout.Markup(tmpl)
	ctx := data(t, `{"language": "Hindi", "conversation_json": [{"id": "A", "sentences": ["x", "y"]}]}`)

	first, _ := Render(tmpl, ctx)
	second, _ := Render(tmpl, ctx)

	assert.Equal(t, string(layout.Markup(first)), string(layout.Markup(second)))
	assert.Equal(t, string(before), string(layout.Markup(tmpl)), "rendering must not modify the template")
}

func TestRender_Concurrent(t *testing.T) {
	tmpl := loadTemplate(t, "conversation_translation.jsx")
	ctx := data(t, `{"language": "Hindi", "conversation_json": [{"id": "A", "sentences": ["x"]}, {"id": "B", "sentences": ["y", "z"]}]}`)
	want, _ := Render(tmpl, ctx)
	wantMarkup := string(layout.Markup(want))

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, _ := Render(tmpl, ctx)
			results[i] = string(layout.Markup(out))
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, wantMarkup, got)
	}
}

func TestRender_GuardInsideRepeater(t *testing.T) {
	tmpl := parse(t, `
<Repeater on="$rows" indexFlag="{{r}}">
  {rows[{{r}}].note ? <Text name="note_{{r}}" value="$rows[{{r}}].note"/> : null}
</Repeater>`)

	out, report := Render(tmpl, data(t, `{"rows": [{"note": "first"}, {"note": ""}, {"note": "third"}]}`))
	assert.True(t, report.Empty())
	assert.Equal(t, []string{"note_0", "note_2"}, attrValues(out, "Text", "name"))
	assert.Equal(t, []string{"first", "third"}, attrValues(out, "Text", "value"))
}

func TestRender_GuardWithLogicalOperators(t *testing.T) {
	tmpl := parse(t, `
<View>
  {speaker_0_details && audio_url ? <Text name="both" value="$speaker_0_details"/> : null}
  {speaker_1_details || audio_url ? <Text name="either" value="$audio_url"/> : null}
  {!speaker_1_details ? <Header value="No second speaker"/> : null}
</View>`)

	out, report := Render(tmpl, data(t, `{"speaker_0_details": "A", "audio_url": "a.wav", "speaker_1_details": ""}`))
	assert.True(t, report.Empty())
	assert.Equal(t, []string{"both", "either"}, attrValues(out, "Text", "name"))
	assert.Equal(t, []string{"No second speaker"}, attrValues(out, "Header", "value"))

	out, _ = Render(tmpl, data(t, `{"speaker_0_details": "A"}`))
	assert.Empty(t, attrValues(out, "Text", "name"))
}
