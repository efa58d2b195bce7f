// Package k8sutil builds Kubernetes clients.
package k8sutil

import (
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/forseti-judge/autoscaler/config"
)

// RESTConfig resolves the cluster connection: the configured kubeconfig
// file, then $KUBECONFIG, then the in-cluster service account.
func RESTConfig(conf config.Kubernetes) (*rest.Config, error) {
	switch {
	case conf.ConfigFile != "":
		kubeconfig, err := clientcmd.BuildConfigFromFlags("", conf.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("building kubeconfig: %w", err)
		}
		return kubeconfig, nil

	case os.Getenv("KUBECONFIG") != "":
		kubeconfig, err := clientcmd.BuildConfigFromFlags("", os.Getenv("KUBECONFIG"))
		if err != nil {
			return nil, fmt.Errorf("building kubeconfig from env: %w", err)
		}
		return kubeconfig, nil

	default:
		kubeconfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("building in-cluster kubeconfig: %w", err)
		}
		return kubeconfig, nil
	}
}

// NewK8sClient returns a new Kubernetes clientset.
func NewK8sClient(conf config.Kubernetes) (kubernetes.Interface, error) {
	kubeconfig, err := RESTConfig(conf)
	if err != nil {
		return nil, err
	}
	kubeconfig.UserAgent = "autoscaler"
	return kubernetes.NewForConfig(kubeconfig)
}
