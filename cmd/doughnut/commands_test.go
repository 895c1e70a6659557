package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/doughnut/internal/api"
	"github.com/kalambet/doughnut/internal/config"
	"github.com/kalambet/doughnut/internal/defaults"
	"github.com/kalambet/doughnut/internal/preference"
)

type memKeychain struct {
	values map[string]string
}

func (m *memKeychain) Get(service, account string) (string, error) {
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *memKeychain) Set(service, account, value string) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[service+"/"+account] = value
	return nil
}

type harness struct {
	dir      string
	music    string
	temp     string
	config   string
	store    string
	backend  string
	keychain *memKeychain
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range config.ShowAll(config.Config{}) {
		t.Setenv(k.EnvVar, "")
	}
	dir := t.TempDir()
	return &harness{
		dir:      dir,
		music:    filepath.Join(dir, "Music"),
		temp:     filepath.Join(dir, "tmp"),
		config:   filepath.Join(dir, "config.toml"),
		store:    filepath.Join(dir, "prefs.toml"),
		backend:  "file",
		keychain: &memKeychain{},
	}
}

func (h *harness) writeConfig(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(h.config, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) app() *app {
	a := newApp()
	a.lookupEnv = func(string) (string, bool) { return "", false }
	a.musicDir = func() string { return h.music }
	a.tempDir = func() string { return h.temp }
	a.dataDir = filepath.Join(h.dir, "data")
	a.keychain = h.keychain
	return a
}

func (h *harness) runCtx(ctx context.Context, args ...string) (string, string, error) {
	a := h.app()
	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", h.config, "--backend", h.backend, "--store-path", h.store}, args...))
	err := cmd.ExecuteContext(ctx)
	a.close()
	return stdout.String(), stderr.String(), err
}

func (h *harness) run(t *testing.T, args ...string) (string, string) {
	t.Helper()
	stdout, stderr, err := h.runCtx(context.Background(), args...)
	if err != nil {
		t.Fatalf("doughnut %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout, stderr
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, "not [valid toml")
	stdout, _ := h.run(t, "version")
	if !strings.Contains(stdout, "doughnut version dev") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestPrefsSetGet(t *testing.T) {
	h := newHarness(t)

	_, stderr := h.run(t, "prefs", "set", "reloadFrequency", "15")
	if !strings.Contains(stderr, "Set reloadFrequency = 15 (integer)") {
		t.Errorf("stderr = %q", stderr)
	}
	stdout, _ := h.run(t, "prefs", "get", "reloadFrequency")
	if strings.TrimSpace(stdout) != "15" {
		t.Errorf("get = %q, want 15", stdout)
	}

	h.run(t, "prefs", "set", "Volume", "0.5", "--type", "double")
	s, err := defaults.OpenFile(h.store)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	v, ok, _ := s.Lookup("Volume")
	if !ok || v.Kind() != preference.KindDouble || v.AsDouble() != 0.5 {
		t.Errorf("stored volume = %v (%v)", v, v.Kind())
	}
}

func TestPrefsGetDefault(t *testing.T) {
	h := newHarness(t)
	stdout, stderr := h.run(t, "prefs", "get", "skipBackDuration")
	if strings.TrimSpace(stdout) != "30" {
		t.Errorf("get = %q, want default 30", stdout)
	}
	if !strings.Contains(stderr, "showing its default") {
		t.Errorf("stderr = %q", stderr)
	}

	stdout, stderr = h.run(t, "prefs", "get", "Volume")
	if stdout != "" || !strings.Contains(stderr, "no default") {
		t.Errorf("get volume = %q / %q", stdout, stderr)
	}
}

func TestPrefsErrors(t *testing.T) {
	h := newHarness(t)
	tests := [][]string{
		{"prefs", "get", "colour"},
		{"prefs", "set", "reloadFrequency", "often"},
		{"prefs", "set", "Volume", "1", "--type", "colour"},
		{"prefs", "unset"},
	}
	for _, args := range tests {
		if _, _, err := h.runCtx(context.Background(), args...); err == nil {
			t.Errorf("doughnut %s succeeded, want error", strings.Join(args, " "))
		}
	}
	if _, err := os.Stat(h.store); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed commands wrote the store: %v", err)
	}
}

func TestPrefsUnsetReset(t *testing.T) {
	h := newHarness(t)
	h.run(t, "prefs", "set", "skipForwardDuration", "99")

	h.run(t, "prefs", "reset", "skipForwardDuration")
	stdout, stderr := h.run(t, "prefs", "get", "skipForwardDuration")
	if strings.TrimSpace(stdout) != "30" || strings.Contains(stderr, "default") {
		t.Errorf("after reset get = %q / %q, want stored 30", stdout, stderr)
	}

	h.run(t, "prefs", "unset", "skipForwardDuration")
	_, stderr = h.run(t, "prefs", "get", "skipForwardDuration")
	if !strings.Contains(stderr, "not set") {
		t.Errorf("after unset stderr = %q", stderr)
	}
}

func TestPrefsListJSON(t *testing.T) {
	h := newHarness(t)
	h.run(t, "prefs", "set", "Volume", "loud")

	stdout, _ := h.run(t, "prefs", "list", "--json")
	var views []api.PreferenceView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("decoding %q: %v", stdout, err)
	}
	if len(views) != len(preference.Keys()) {
		t.Fatalf("got %d views", len(views))
	}
	for _, v := range views {
		if v.Key == "Volume" {
			if s, _ := v.Value.AsString(); !v.Set || s != "loud" {
				t.Errorf("volume view = %+v", v)
			}
		}
	}
}

func TestPrefsListTable(t *testing.T) {
	h := newHarness(t)
	h.run(t, "prefs", "set", "reloadFrequency", "5")
	stdout, _ := h.run(t, "prefs", "list")
	for _, want := range []string{"KEY", "DEFAULT", "reloadFrequency", "skipBackDuration", "integer"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("table missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "UPDATED") {
		t.Errorf("file backend table has an UPDATED column:\n%s", stdout)
	}
}

func TestPrefsListSQLite(t *testing.T) {
	h := newHarness(t)
	h.backend = "sqlite"
	h.store = filepath.Join(h.dir, "db")

	h.run(t, "prefs", "set", "reloadFrequency", "5")
	stdout, _ := h.run(t, "prefs", "list")
	if !strings.Contains(stdout, "UPDATED") {
		t.Errorf("sqlite table has no UPDATED column:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(h.store, "doughnut.db")); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestLibraryPath_Debug(t *testing.T) {
	h := newHarness(t)
	stdout, _ := h.run(t, "library", "path")
	want := filepath.Join(h.music, "Doughnut_dev")
	if strings.TrimSpace(stdout) != want {
		t.Errorf("library path = %q, want %q", stdout, want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Errorf("library not created: %v", err)
	}
}

func TestLibraryPath_Release(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, "[build]\nmode = \"release\"\n")

	if _, _, err := h.runCtx(context.Background(), "library", "path"); !errors.Is(err, errNoLibrary) {
		t.Fatalf("err = %v, want errNoLibrary", err)
	}

	custom := filepath.Join(h.dir, "Podcasts")
	h.run(t, "library", "set", custom)
	stdout, _ := h.run(t, "library", "path")
	if strings.TrimSpace(stdout) != custom {
		t.Errorf("library path = %q, want %q", stdout, custom)
	}
	if _, err := os.Stat(custom); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("custom library was created: %v", err)
	}

	h.run(t, "library", "create")
	if info, err := os.Stat(custom); err != nil || !info.IsDir() {
		t.Errorf("library create did not create %s: %v", custom, err)
	}
}

func TestLibraryCreate_Explicit(t *testing.T) {
	h := newHarness(t)
	dir := filepath.Join(h.dir, "a", "b")
	h.run(t, "library", "create", dir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("library create %s: %v", dir, err)
	}

	blocker := filepath.Join(h.dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.runCtx(context.Background(), "library", "create", filepath.Join(blocker, "lib")); err == nil {
		t.Error("expected error creating a library beneath a file")
	}
}

func TestConfigShowAndSet(t *testing.T) {
	h := newHarness(t)

	h.run(t, "config", "set", "server.port", "4321")
	stdout, stderr := h.run(t, "config", "show")
	for _, want := range []string{"server.port", "4321", "DOUGHNUT_SERVER_PORT", "store.backend", "file"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "Build mode: debug") {
		t.Errorf("stderr = %q", stderr)
	}

	if _, _, err := h.runCtx(context.Background(), "config", "set", "server.port", "zero"); err == nil {
		t.Error("config set accepted a non-integer port")
	}
}

func TestLogLevelOff(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.store, []byte("not valid toml {{{\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, stderr := h.run(t, "prefs", "list")
	if !strings.Contains(stderr, "could not read preferences file") {
		t.Errorf("stderr = %q, want the unreadable-file warning", stderr)
	}

	_, stderr = h.run(t, "--log-level", "off", "prefs", "list")
	if stderr != "" {
		t.Errorf("stderr with logging off = %q, want nothing", stderr)
	}
}

func TestInvalidBackendFlag(t *testing.T) {
	h := newHarness(t)
	h.backend = "cloud"
	if _, _, err := h.runCtx(context.Background(), "prefs", "list"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg  config.StoreConfig
		want string
	}{
		{config.StoreConfig{Backend: "memory"}, "*preference.MemoryStore"},
		{config.StoreConfig{Backend: "file", Path: filepath.Join(dir, "p.toml")}, "*defaults.FileStore"},
		{config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "db")}, "*storage.Store"},
	}
	for _, tt := range tests {
		s, closeFunc, err := openStore(tt.cfg)
		if err != nil {
			t.Fatalf("openStore(%s): %v", tt.cfg.Backend, err)
		}
		if got := fmt.Sprintf("%T", s); got != tt.want {
			t.Errorf("openStore(%s) = %s, want %s", tt.cfg.Backend, got, tt.want)
		}
		if err := closeFunc(); err != nil {
			t.Errorf("close %s: %v", tt.cfg.Backend, err)
		}
	}
	if _, _, err := openStore(config.StoreConfig{Backend: "cloud"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorGreen, "test message"); got != "test message" {
		t.Errorf("colorize with noColor=true = %q", got)
	}
	noColor = false
	if got := colorize(colorGreen, "test message"); !strings.Contains(got, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}

func TestColorEnabled(t *testing.T) {
	noEnv := func(string) (string, bool) { return "", false }
	if colorEnabled(&bytes.Buffer{}, noEnv) {
		t.Error("buffer reported as a terminal")
	}
	withNoColor := func(k string) (string, bool) { return "", k == "NO_COLOR" }
	if colorEnabled(os.Stderr, withNoColor) {
		t.Error("NO_COLOR did not disable colour")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}})
	for _, want := range []string{"A", "B", "1", "2", "3"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Error("empty header should render nothing")
	}
}

func TestAPIClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"status":"ok"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"nope","type":"authentication_error"}}`))
			return
		}
		w.Write([]byte(`{"path":"/music/Doughnut","configured":true}`))
	}))
	defer ts.Close()

	ctx := context.Background()
	c := &apiClient{baseURL: ts.URL, token: "test-token", httpClient: ts.Client()}
	if err := c.health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	var lib api.LibraryView
	if err := c.getJSON(ctx, "/library", &lib); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if lib.Path != "/music/Doughnut" || !lib.Configured {
		t.Errorf("library = %+v", lib)
	}

	c.token = "wrong"
	if err := c.getJSON(ctx, "/library", &lib); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want a 401", err)
	}

	ts.Close()
	if err := c.health(ctx); err == nil || !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("err = %v, want not reachable", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServe(t *testing.T) {
	h := newHarness(t)
	port := freePort(t)
	h.writeConfig(t, fmt.Sprintf("[server]\nport = %d\n", port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, _, err := h.runCtx(ctx, "serve")
		done <- err
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	token, err := config.APIToken(h.keychain)
	if err != nil {
		t.Fatalf("APIToken: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, base+"/library", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /library: %v", err)
	}
	var lib api.LibraryView
	json.NewDecoder(resp.Body).Decode(&lib)
	resp.Body.Close()
	if want := filepath.Join(h.music, "Doughnut_dev"); lib.Path != want {
		t.Errorf("library = %+v, want %s", lib, want)
	}

	if _, err := os.Stat(filepath.Join(h.dir, "data", "doughnut.pid")); err != nil {
		t.Errorf("pid file missing while serving: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
	if _, err := os.Stat(filepath.Join(h.dir, "data", "doughnut.pid")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("pid file left behind: %v", err)
	}
}
