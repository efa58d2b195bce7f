package k8sutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forseti-judge/autoscaler/config"
)

const kubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: judge
  cluster:
    server: https://judge.example.com:6443
contexts:
- name: judge
  context:
    cluster: judge
    user: autoscaler
current-context: judge
users:
- name: autoscaler
  user:
    token: secret
`

func TestRESTConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(path, []byte(kubeconfig), 0600); err != nil {
		t.Fatal(err)
	}

	rc, err := RESTConfig(config.Kubernetes{ConfigFile: path})
	if err != nil {
		t.Fatal(err)
	}
	if rc.Host != "https://judge.example.com:6443" {
		t.Error("unexpected host", rc.Host)
	}
	if rc.BearerToken != "secret" {
		t.Error("unexpected token", rc.BearerToken)
	}

	t.Setenv("KUBECONFIG", path)
	if _, err := NewK8sClient(config.Kubernetes{}); err != nil {
		t.Error("unexpected error", err)
	}
}

func TestRESTConfigMissingFile(t *testing.T) {
	if _, err := RESTConfig(config.Kubernetes{ConfigFile: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected an error")
	}
}
