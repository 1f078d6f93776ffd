package main

import (
	"os"
	"testing"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/config"
)

func TestRedirectURI(t *testing.T) {
	if got := redirectURI(8817); got != "http://127.0.0.1:8817/callback" {
		t.Errorf("redirectURI() = %q", got)
	}
}

func TestEnvOr(t *testing.T) {
	orig := os.Getenv("PUBCRAFT_TEST_KEY")
	defer os.Setenv("PUBCRAFT_TEST_KEY", orig)

	os.Setenv("PUBCRAFT_TEST_KEY", "from-env")
	if got := envOr("PUBCRAFT_TEST_KEY", "from-config"); got != "from-env" {
		t.Errorf("envOr() = %q, want from-env", got)
	}

	os.Setenv("PUBCRAFT_TEST_KEY", "")
	if got := envOr("PUBCRAFT_TEST_KEY", "from-config"); got != "from-config" {
		t.Errorf("envOr() = %q, want from-config", got)
	}
}

func TestCallbackPort_Default(t *testing.T) {
	config.ResetGlobalConfigCache()
	defer config.ResetGlobalConfigCache()

	orig := os.Getenv("XDG_CONFIG_HOME")
	defer os.Setenv("XDG_CONFIG_HOME", orig)
	os.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if got := callbackPort(); got != defaultCallbackPort {
		t.Errorf("callbackPort() = %d, want %d", got, defaultCallbackPort)
	}
}
