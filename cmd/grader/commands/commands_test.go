package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeVendor(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func okVendor(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Score: 7/10, mostly correct."}}]}`))
}

func useSlot(t *testing.T, slot, baseURL string) {
	t.Helper()
	prefix := "SLOTS_" + strings.ToUpper(slot) + "_"
	t.Setenv(prefix+"BASE_URL", baseURL)
	t.Setenv(prefix+"API_KEY", "sk-test")
	t.Setenv(prefix+"MODEL_ID", "vision-test")
	t.Setenv("ENGINE_TIME_UNIT", "10ms")
	t.Setenv("STORE_ENABLED", "false")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("v1.2.3")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGradeCommand(t *testing.T) {
	vendor := fakeVendor(t, okVendor)
	useSlot(t, "first", vendor.URL)

	img := filepath.Join(t.TempDir(), "answer.png")
	require.NoError(t, os.WriteFile(img, []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, 0o600))

	out, err := run(t, "", "grade", "--image", img, "--prompt", "Score this")
	require.NoError(t, err)
	assert.Contains(t, out, "Score: 7/10")
}

func TestGradeCommand_StdinAndJSON(t *testing.T) {
	vendor := fakeVendor(t, okVendor)
	useSlot(t, "second", vendor.URL)

	out, err := run(t, "aGVsbG8=", "grade", "--slot", "second", "--image", "-", "--prompt", "Score this", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"answer"`)
	assert.Contains(t, out, "7/10")
}

func TestGradeCommand_IncompleteSlot(t *testing.T) {
	t.Setenv("STORE_ENABLED", "false")
	t.Setenv("SLOTS_FIRST_BASE_URL", "")

	_, err := run(t, "", "grade", "--prompt", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestGradeCommand_InvalidSlot(t *testing.T) {
	_, err := run(t, "", "grade", "--slot", "third", "--prompt", "hi")
	assert.Error(t, err)
}

func TestTestCommand(t *testing.T) {
	good := fakeVendor(t, okVendor)
	bad := fakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	useSlot(t, "first", good.URL)
	useSlot(t, "second", bad.URL)

	out, err := run(t, "", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 slots failed")
	assert.Contains(t, out, "Slot first connected successfully")
	assert.Contains(t, out, engine.ConnectionHint)
}

func TestStrategyCommand_MemoryBackendIsEmpty(t *testing.T) {
	t.Setenv("STORE_ENABLED", "false")

	out, err := run(t, "", "strategy", "show")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "no cached strategy"))

	out, err = run(t, "", "strategy", "clear", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 1 slot(s)")
}

func TestReadImage(t *testing.T) {
	got, err := readImage("", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = readImage("-", strings.NewReader("data:image/png;base64,aGVsbG8=\n"))
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", got)

	got, err = readImage("-", strings.NewReader("aGVsbG8="))
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", got)

	raw := []byte{0xff, 0xd8, 0xff, 0xe0}
	got, err = readImage("-", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), got)

	_, err = readImage("-", strings.NewReader(""))
	assert.Error(t, err)

	_, err = readImage(filepath.Join(t.TempDir(), "missing.jpg"), nil)
	assert.Error(t, err)
}

func TestCheckForUpdates(t *testing.T) {
	srv := fakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"v1.3.0"}`))
	})

	latest, newer, err := checkForUpdates(context.Background(), srv.Client(), srv.URL, "v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "v1.3.0", latest)
	assert.True(t, newer)

	_, newer, err = checkForUpdates(context.Background(), srv.Client(), srv.URL, "v1.3.0")
	require.NoError(t, err)
	assert.False(t, newer)
}

func TestCheckForUpdates_BadStatus(t *testing.T) {
	srv := fakeVendor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, _, err := checkForUpdates(context.Background(), srv.Client(), srv.URL, "v1.2.3")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "vision-grader v1.2.3")
}
