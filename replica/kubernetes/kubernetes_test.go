package kubernetes

import (
	"context"
	"errors"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/forseti-judge/autoscaler/replica"
)

func deployment(replicas *int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "judge", Namespace: "judging"},
		Spec:       appsv1.DeploymentSpec{Replicas: replicas},
	}
}

func int32Ptr(n int32) *int32 {
	return &n
}

func TestReplicas(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(int32Ptr(2)))
	c := NewControllerWithClient("judge", "judging", client)

	n, err := c.Replicas(context.Background())
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if n != 2 {
		t.Error("expected 2 replicas, got", n)
	}
}

func TestReplicasDefault(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(nil))
	c := NewControllerWithClient("judge", "judging", client)

	n, err := c.Replicas(context.Background())
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if n != 1 {
		t.Error("expected the API default of 1 replica, got", n)
	}
}

func TestSetReplicas(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(int32Ptr(1)))
	c := NewControllerWithClient("judge", "judging", client)

	if err := c.SetReplicas(context.Background(), 3); err != nil {
		t.Fatal("unexpected error", err)
	}
	d, err := client.AppsV1().Deployments("judging").Get(context.Background(), "judge", metav1.GetOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if *d.Spec.Replicas != 3 {
		t.Error("expected 3 replicas, got", *d.Spec.Replicas)
	}
}

func TestSetReplicasRetriesConflicts(t *testing.T) {
	client := fake.NewSimpleClientset(deployment(int32Ptr(1)))
	conflicts := 1
	client.PrependReactor("update", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if conflicts > 0 {
			conflicts--
			return true, nil, apierrors.NewConflict(schema.GroupResource{Group: "apps", Resource: "deployments"}, "judge", errors.New("modified"))
		}
		return false, nil, nil
	})
	c := NewControllerWithClient("judge", "judging", client)

	if err := c.SetReplicas(context.Background(), 2); err != nil {
		t.Fatal("unexpected error", err)
	}
	n, _ := c.Replicas(context.Background())
	if n != 2 {
		t.Error("expected 2 replicas, got", n)
	}
}

func TestNotFound(t *testing.T) {
	client := fake.NewSimpleClientset()
	c := NewControllerWithClient("judge", "judging", client)

	_, err := c.Replicas(context.Background())
	var oerr *replica.OrchestrationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected an OrchestrationError, got %T", err)
	}
	if !oerr.NotFound {
		t.Error("expected a not found error", oerr)
	}

	err = c.SetReplicas(context.Background(), 2)
	if !errors.As(err, &oerr) || !oerr.NotFound {
		t.Error("expected a not found error, got", err)
	}
}

func TestProbe(t *testing.T) {
	c := NewControllerWithClient("judge", "judging", fake.NewSimpleClientset())
	if err := c.Probe(context.Background()); err != nil {
		t.Error("unexpected error", err)
	}
}
