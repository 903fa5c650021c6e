package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pribylovaa/go-stork-validator/internal/models"
	"github.com/pribylovaa/go-stork-validator/internal/storage"
	"github.com/stretchr/testify/require"
)

var validAccess = strings.Repeat("a", 40)

func writeTokens(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// TestPath_ExplicitAndDefault — явный путь важнее каталога.
func TestPath_ExplicitAndDefault(t *testing.T) {
	t.Parallel()

	st := New("/data", map[string]string{"alice": "/etc/alice.json", "empty": ""})
	require.Equal(t, "/etc/alice.json", st.Path("alice"))
	require.Equal(t, filepath.Join("/data", "bob.json"), st.Path("bob"))
	require.Equal(t, filepath.Join("/data", "empty.json"), st.Path("empty"))
}

// TestLoad_Missing_CorruptState — отсутствующий файл — ErrCorruptState.
func TestLoad_Missing_CorruptState(t *testing.T) {
	t.Parallel()

	st := New(t.TempDir(), nil)
	_, err := st.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, storage.ErrCorruptState)
	require.Contains(t, err.Error(), "not found")
}

// TestLoad_BrokenJSON_CorruptState — нечитаемый JSON — ErrCorruptState.
func TestLoad_BrokenJSON_CorruptState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTokens(t, filepath.Join(dir, "a.json"), `{"accessToken": `)

	_, err := New(dir, nil).Load(context.Background(), "a")
	require.ErrorIs(t, err, storage.ErrCorruptState)
}

// TestLoad_ShortToken_InvalidTokenWithPair — короткий токен: ErrInvalidToken и разобранная пара.
func TestLoad_ShortToken_InvalidTokenWithPair(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTokens(t, filepath.Join(dir, "a.json"), `{"accessToken":"short","refreshToken":"r-1"}`)

	pair, err := New(dir, nil).Load(context.Background(), "a")
	require.ErrorIs(t, err, storage.ErrInvalidToken)
	require.NotErrorIs(t, err, storage.ErrCorruptState)
	require.Equal(t, "short", pair.AccessToken)
	require.Equal(t, "r-1", pair.RefreshToken)
}

// TestSaveLoad_RoundTrip — запись и чтение дают ту же пару, формат файла совместим.
func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := New(dir, nil)
	pair := models.TokenPair{AccessToken: validAccess, IDToken: "id-1", RefreshToken: "r-1"}

	require.NoError(t, st.Save(context.Background(), "a", pair))

	got, err := st.Load(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, pair, got)

	raw, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, validAccess, m["accessToken"])
	require.Equal(t, "id-1", m["idToken"])
	require.Equal(t, "r-1", m["refreshToken"])

	info, err := os.Stat(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestSave_ReplacesAndLeavesNoTempFiles — перезапись не оставляет временных файлов.
func TestSave_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := New(dir, nil)

	for i := 0; i < 5; i++ {
		pair := models.TokenPair{AccessToken: validAccess + strings.Repeat("x", i), RefreshToken: "r"}
		require.NoError(t, st.Save(context.Background(), "a", pair))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.json", entries[0].Name())

	got, err := st.Load(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, validAccess+"xxxx", got.AccessToken)
}

// TestSave_ConcurrentWritersNeverTear — параллельные записи не дают «рваного» файла.
func TestSave_ConcurrentWritersNeverTear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := New(dir, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := models.TokenPair{AccessToken: validAccess + strings.Repeat("z", i), RefreshToken: "r"}
			_ = st.Save(context.Background(), "a", pair)
		}(i)
	}
	wg.Wait()

	got, err := st.Load(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.AccessToken, validAccess))
}

// TestSave_UnwritableDir_Persistence — ошибка записи оборачивает ErrPersistence.
func TestSave_UnwritableDir_Persistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	writeTokens(t, blocker, "not a dir")

	st := New(dir, map[string]string{"a": filepath.Join(blocker, "a.json")})
	err := st.Save(context.Background(), "a", models.TokenPair{AccessToken: validAccess})
	require.ErrorIs(t, err, storage.ErrPersistence)
}
