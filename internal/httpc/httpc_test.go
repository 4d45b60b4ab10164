package httpc

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHttpc_InsecureAllowsSelfSigned(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	strict := (&Httpc{}).New()
	if _, err := strict.R().Get(srv.URL); err == nil {
		t.Fatalf("expected unknown authority error without insecure mode")
	}

	insecure := (&Httpc{TlsConfig: TLSConfig(true, "", "")}).New()
	resp, err := insecure.R().Get(srv.URL)
	if err != nil || resp.StatusCode() != http.StatusOK {
		t.Fatalf("expected 200 with insecure mode, got resp=%v err=%v", resp, err)
	}
}

func TestHttpc_DefaultMinVersion(t *testing.T) {
	cfg := &tls.Config{}
	c := (&Httpc{TlsConfig: cfg}).New()
	tr, _ := c.GetClient().Transport.(*http.Transport)
	if tr == nil || tr.TLSClientConfig == nil {
		t.Fatalf("expected TLS config on transport")
	}
	if tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected default min TLS1.2, got %x", tr.TLSClientConfig.MinVersion)
	}
}

func TestHttpc_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := (&Httpc{Timeout: 20 * time.Millisecond}).New()
	if _, err := c.R().Get(srv.URL); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestParseTLSVersion(t *testing.T) {
	cases := map[string]uint16{
		"1.2":    tls.VersionTLS12,
		"tls13":  tls.VersionTLS13,
		" 1.0 ":  tls.VersionTLS10,
		"TLS1.1": tls.VersionTLS11,
		"bogus":  0,
		"":       0,
	}
	for in, want := range cases {
		if got := ParseTLSVersion(in); got != want {
			t.Errorf("ParseTLSVersion(%q) = %x, want %x", in, got, want)
		}
	}
}

func TestTLSConfig_NilWhenUnset(t *testing.T) {
	if cfg := TLSConfig(false, "", ""); cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
	cfg := TLSConfig(false, "1.2", "1.3")
	if cfg == nil || cfg.MinVersion != tls.VersionTLS12 || cfg.MaxVersion != tls.VersionTLS13 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
