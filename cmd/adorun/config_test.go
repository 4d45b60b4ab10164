package main

import (
	"strings"
	"testing"
	"time"

	"github.com/loykin/adorun"
	"github.com/spf13/viper"
)

const sampleConfig = `---
server: https://tfs.example.com/DefaultCollection/
personal_access_token: from-file-token
personal_access_token_from_env: ADORUN_TEST_PAT
resource: wiki
operation: updatePage
continue_on_fail: true
memoize_lookups: true
normalize: legacy
env:
  - name: project
    value: Demo
  - name: wiki
    valueFromEnv: ADORUN_TEST_WIKI
parameters:
  project: "{{.env.project}}"
  wiki: "{{.env.wiki}}"
  pagePath: "{{.item.path}}"
client:
  timeout: 5s
  insecure: true
  min_tls_version: "1.2"
wait:
  timeout: 10s
  interval: 500ms
logging:
  level: debug
  format: json
  mask_sensitive: true
store:
  type: sqlite
  sqlite:
    path: /tmp/journal.db
  table_prefix: nightly
`

func TestConfigDoc_Load(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)
	var doc ConfigDoc
	if err := doc.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Resource != "wiki" || doc.Operation != "updatePage" || !doc.ContinueOnFail || !doc.MemoizeLookups {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if len(doc.Env) != 2 || doc.Env[1].ValueFromEnv != "ADORUN_TEST_WIKI" {
		t.Fatalf("unexpected env: %+v", doc.Env)
	}
	if doc.Parameters["pagePath"] != "{{.item.path}}" {
		t.Fatalf("unexpected parameters: %+v", doc.Parameters)
	}
	if doc.Store.Type != "sqlite" || doc.Store.SQLite.Path != "/tmp/journal.db" || doc.Store.TablePrefix != "nightly" {
		t.Fatalf("unexpected store: %+v", doc.Store)
	}
	if doc.Wait.Interval != "500ms" || doc.Client.MinTLSVersion != "1.2" {
		t.Fatalf("unexpected wait/client: %+v %+v", doc.Wait, doc.Client)
	}
}

func TestConfigDoc_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	var doc ConfigDoc
	if err := doc.Load(dir); err == nil || !strings.Contains(err.Error(), "not a regular file") {
		t.Fatalf("expected regular file error, got %v", err)
	}
	bad := writeFile(t, dir, "bad.yaml", "server: [unterminated")
	if err := doc.Load(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigDoc_CredentialFromEnv(t *testing.T) {
	doc := ConfigDoc{Server: " https://tfs ", PersonalAccessToken: "file", PersonalAccessTokenFromEnv: "ADORUN_TEST_PAT"}
	if got := doc.Credential().PersonalAccessToken; got != "file" {
		t.Fatalf("expected file token when env unset, got %q", got)
	}
	t.Setenv("ADORUN_TEST_PAT", "env-token")
	cred := doc.Credential()
	if cred.PersonalAccessToken != "env-token" || cred.Server != "https://tfs" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestConfigDoc_Options(t *testing.T) {
	doc := ConfigDoc{Server: "https://tfs", PersonalAccessToken: "tok", Normalize: "legacy", ContinueOnFail: true, Client: ClientConfig{Timeout: "3s"}}
	opts, err := doc.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.Normalize != adorun.NormalizeLegacy || opts.Client.Timeout != 3*time.Second || !opts.ContinueOnFail || opts.Auth != nil {
		t.Fatalf("unexpected options: %+v", opts)
	}

	doc.Normalize = "strict"
	if _, err := doc.Options(); err == nil {
		t.Fatal("expected normalize error")
	}
	doc.Normalize = ""
	doc.Client.Timeout = "soon"
	if _, err := doc.Options(); err == nil || !strings.Contains(err.Error(), "client.timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	doc.Client.Timeout = ""
	doc.Auth = &AuthConfig{Type: "kerberos"}
	if _, err := doc.Options(); err == nil || !strings.Contains(err.Error(), "auth:") {
		t.Fatalf("expected auth error, got %v", err)
	}
	doc.Auth = &AuthConfig{Type: "basic", Config: map[string]interface{}{"username": "svc", "password": "pw"}}
	opts, err = doc.Options()
	if err != nil || opts.Auth == nil {
		t.Fatalf("expected auth provider, got %v %v", opts.Auth, err)
	}
}

func TestConfigDoc_ApplyOverrides(t *testing.T) {
	v := viper.New()
	v.Set("server", "https://override")
	v.Set("operation", "getPage")
	v.Set("continue_on_fail", false)
	v.Set("no_store", true)
	doc := ConfigDoc{Server: "https://file", Resource: "wiki", Operation: "updatePage", ContinueOnFail: true}
	doc.Store.Type = "sqlite"
	doc.applyOverrides(v)
	if doc.Server != "https://override" || doc.Operation != "getPage" || doc.Resource != "wiki" {
		t.Fatalf("unexpected overrides: %+v", doc)
	}
	if doc.ContinueOnFail {
		t.Fatal("continue_on_fail should be overridden")
	}
	if doc.Store.Enabled() {
		t.Fatal("no_store should disable the store")
	}
}

func TestConfigDoc_SetupLogging(t *testing.T) {
	prev := adorun.GetLogger()
	t.Cleanup(func() { adorun.SetDefaultLogger(prev) })

	doc := ConfigDoc{Logging: LoggingConfig{Level: "debug", Format: "json"}}
	if err := doc.SetupLogging(); err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	if adorun.GetLogger().Level() != adorun.LogLevelDebug {
		t.Fatalf("expected debug level")
	}
	if err := (&ConfigDoc{Logging: LoggingConfig{Level: "loud"}}).SetupLogging(); err == nil {
		t.Fatal("expected level error")
	}
	if err := (&ConfigDoc{Logging: LoggingConfig{Format: "xml"}}).SetupLogging(); err == nil {
		t.Fatal("expected format error")
	}
}
