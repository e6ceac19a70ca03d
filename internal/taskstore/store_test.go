package taskstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	put, err := s.Put(ctx, "AudioTranscription", json.RawMessage(`{"audio_url": "a.wav"}`))
	require.NoError(t, err)
	assert.NotZero(t, put.ID)

	got, err := s.Get(ctx, put.ID)
	require.NoError(t, err)
	assert.Equal(t, put.ID, got.ID)
	assert.Equal(t, "AudioTranscription", got.Project)
	assert.JSONEq(t, `{"audio_url": "a.wav"}`, string(got.Data))
	assert.True(t, put.Created.Equal(got.Created))
}

func TestStore_PutRejectsInvalidTasks(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Put(ctx, "", json.RawMessage(`{}`))
	assert.Error(t, err)
	_, err = s.Put(ctx, "OCR", json.RawMessage(`["not", "an", "object"]`))
	assert.ErrorContains(t, err, "must be a JSON object")
}

func TestStore_PutAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tasks := []*Task{
		{Project: "OCR", Data: json.RawMessage(`{"image_url": "a.png"}`)},
		{Project: "OCR", Data: json.RawMessage(`{"image_url": "b.png"}`)},
	}
	require.NoError(t, s.PutAll(ctx, tasks))
	assert.NotZero(t, tasks[0].ID)
	assert.Greater(t, tasks[1].ID, tasks[0].ID)

	listed, err := s.ListByProject(ctx, "OCR")
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestStore_PutAllRollsBackOnFailure(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	s := openTestStore(t)
	tasks := []*Task{
		{Project: "OCR", Data: json.RawMessage(`{"image_url": "a.png"}`)},
		{Project: "OCR", Data: json.RawMessage(`null`)},
	}

	// --- Act ---
	err := s.PutAll(ctx, tasks)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 1")
	listed, err := s.ListByProject(ctx, "OCR")
	require.NoError(t, err)
	assert.Empty(t, listed, "a failed import must not leave earlier tasks behind")

	// The store stays usable after the rollback.
	_, err = s.Put(ctx, "OCR", json.RawMessage(`{}`))
	require.NoError(t, err)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListByProject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, p := range []string{"A", "B", "A", "A"} {
		_, err := s.Put(ctx, p, json.RawMessage(`{"project": "`+p+`"}`))
		require.NoError(t, err)
	}

	tasks, err := s.ListByProject(ctx, "A")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i := 1; i < len(tasks); i++ {
		assert.Less(t, tasks[i-1].ID, tasks[i].ID)
	}

	none, err := s.ListByProject(ctx, "C")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Renders(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	task, err := s.Put(ctx, "OCR", json.RawMessage(`{"image_url": "x.png"}`))
	require.NoError(t, err)

	_, err = s.LatestRender(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &Render{TaskID: task.ID, Format: "xml", Output: []byte("<View/>\n")}
	require.NoError(t, s.SaveRender(ctx, first))
	second := &Render{TaskID: task.ID, Format: "json", Output: []byte(`{"kind":"fragment"}`), Issues: 2}
	require.NoError(t, s.SaveRender(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	latest, err := s.LatestRender(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "json", latest.Format)
	assert.Equal(t, second.Output, latest.Output)
	assert.Equal(t, 2, latest.Issues)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	task, err := s.Put(ctx, "OCR", json.RawMessage(`{}`))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SaveRender(ctx, &Render{TaskID: task.ID, Format: "xml", Output: []byte("<View/>")}))
		}()
	}
	wg.Wait()

	latest, err := s.LatestRender(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), latest.ID)
}

func TestSetupSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, SetupSchema(s.db))
	require.NoError(t, SetupSchema(s.db))
}
