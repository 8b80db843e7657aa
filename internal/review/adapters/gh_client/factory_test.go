package ghclient

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func TestTokenFactory_ForInstallation(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"login": "octocat"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := NewTokenFactory("tok", WithEnterpriseURL(server.URL+"/api/v3/"))
	client, err := f.ForInstallation(0)
	if err != nil {
		t.Fatalf("ForInstallation() unexpected error: %v", err)
	}

	user, _, err := client.Users.Get(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Users.Get() unexpected error: %v", err)
	}
	if user.GetLogin() != "octocat" {
		t.Errorf("login = %q", user.GetLogin())
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestAppFactory_ForInstallation(t *testing.T) {
	f := NewAppFactory(1, testKey(t))

	if _, err := f.ForInstallation(0); err == nil {
		t.Error("expected error without installation id")
	}

	first, err := f.ForInstallation(42)
	if err != nil {
		t.Fatalf("ForInstallation() unexpected error: %v", err)
	}
	second, err := f.ForInstallation(42)
	if err != nil {
		t.Fatalf("ForInstallation() unexpected error: %v", err)
	}
	if first == nil || second == nil {
		t.Fatal("expected clients")
	}
	if len(f.transports) != 1 {
		t.Errorf("cached %d transports, want 1", len(f.transports))
	}
}

func TestAppFactory_BadKey(t *testing.T) {
	f := NewAppFactory(1, []byte("not a key"))
	if _, err := f.ForInstallation(42); err == nil {
		t.Error("expected error for invalid private key")
	}
}
