package swarm

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/errdefs"
	"github.com/stretchr/testify/mock"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/replica"
)

type mockDocker struct {
	mock.Mock
}

func (m *mockDocker) ServiceInspectWithRaw(ctx context.Context, serviceID string, opts types.ServiceInspectOptions) (swarm.Service, []byte, error) {
	args := m.Called(serviceID)
	return args.Get(0).(swarm.Service), nil, args.Error(1)
}

func (m *mockDocker) ServiceUpdate(ctx context.Context, serviceID string, version swarm.Version, service swarm.ServiceSpec, options types.ServiceUpdateOptions) (swarm.ServiceUpdateResponse, error) {
	args := m.Called(serviceID, version, *service.Mode.Replicated.Replicas)
	return args.Get(0).(swarm.ServiceUpdateResponse), args.Error(1)
}

func (m *mockDocker) Ping(ctx context.Context) (types.Ping, error) {
	args := m.Called()
	return types.Ping{}, args.Error(0)
}

func replicated(n uint64) swarm.Service {
	svc := swarm.Service{ID: "svc-id"}
	svc.Version.Index = 42
	svc.Spec.Name = "judge"
	svc.Spec.Mode.Replicated = &swarm.ReplicatedService{Replicas: &n}
	return svc
}

func testController(m *mockDocker) *Controller {
	log := logger.NewLogger("test", logger.DebugConfig())
	log.Discard()
	return newController("judge", m, log)
}

func TestReplicas(t *testing.T) {
	m := &mockDocker{}
	m.On("ServiceInspectWithRaw", "judge").Return(replicated(2), nil)

	n, err := testController(m).Replicas(context.Background())
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if n != 2 {
		t.Error("expected 2 replicas, got", n)
	}
}

func TestSetReplicas(t *testing.T) {
	m := &mockDocker{}
	m.On("ServiceInspectWithRaw", "judge").Return(replicated(1), nil)
	m.On("ServiceUpdate", "svc-id", swarm.Version{Index: 42}, uint64(3)).
		Return(swarm.ServiceUpdateResponse{Warnings: []string{"image could not be accessed"}}, nil)

	if err := testController(m).SetReplicas(context.Background(), 3); err != nil {
		t.Fatal("unexpected error", err)
	}
	m.AssertExpectations(t)
}

func TestSetReplicasConflict(t *testing.T) {
	m := &mockDocker{}
	m.On("ServiceInspectWithRaw", "judge").Return(replicated(1), nil)
	m.On("ServiceUpdate", "svc-id", mock.Anything, uint64(2)).
		Return(swarm.ServiceUpdateResponse{}, errors.New("update out of sequence"))

	err := testController(m).SetReplicas(context.Background(), 2)
	var oerr *replica.OrchestrationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected an OrchestrationError, got %T", err)
	}
	if oerr.NotFound || oerr.Op != "set replicas" {
		t.Error("unexpected error fields", oerr)
	}
}

func TestServiceNotFound(t *testing.T) {
	m := &mockDocker{}
	m.On("ServiceInspectWithRaw", "judge").
		Return(swarm.Service{}, errdefs.NotFound(errors.New("service judge not found")))

	_, err := testController(m).Replicas(context.Background())
	var oerr *replica.OrchestrationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected an OrchestrationError, got %T", err)
	}
	if !oerr.NotFound {
		t.Error("expected a not found error", oerr)
	}
}

func TestGlobalServiceRejected(t *testing.T) {
	svc := swarm.Service{ID: "svc-id"}
	svc.Spec.Mode.Global = &swarm.GlobalService{}
	m := &mockDocker{}
	m.On("ServiceInspectWithRaw", "judge").Return(svc, nil)

	err := testController(m).SetReplicas(context.Background(), 2)
	if !errors.Is(err, errGlobalService) {
		t.Error("expected global services to be rejected, got", err)
	}
	m.AssertNotCalled(t, "ServiceUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestProbe(t *testing.T) {
	m := &mockDocker{}
	m.On("Ping").Return(nil).Once()
	m.On("Ping").Return(errors.New("connection refused")).Once()

	c := testController(m)
	if err := c.Probe(context.Background()); err != nil {
		t.Error("unexpected error", err)
	}
	var oerr *replica.OrchestrationError
	if err := c.Probe(context.Background()); !errors.As(err, &oerr) {
		t.Error("expected an OrchestrationError, got", err)
	}
}
