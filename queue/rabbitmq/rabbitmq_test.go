package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/queue"
)

func testConfig(t *testing.T, srv *httptest.Server) config.RabbitMQ {
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	conf := config.DefaultConfig().RabbitMQ
	conf.Host = host
	conf.Port, _ = strconv.Atoi(port)
	conf.User = "judge"
	conf.Password = "secret"
	conf.Timeout = config.Duration(time.Second)
	return conf
}

// fakeManagementAPI fakes the two endpoints used by Source.
func fakeManagementAPI(t *testing.T, ready, unacked int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "judge" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"not_authorised","reason":"Login failed"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.EscapedPath() {
		case "/api/queues/%2F/submission-queue":
			fmt.Fprintf(w, `{"name":"submission-queue","vhost":"/","messages_ready":%d,"messages_unacknowledged":%d}`, ready, unacked)
		case "/api/overview":
			fmt.Fprint(w, `{"management_version":"3.12.0","cluster_name":"rabbit@judge"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Object Not Found","reason":"Not Found"}`)
		}
	}))
}

func TestBacklog(t *testing.T) {
	srv := fakeManagementAPI(t, 3, 2)
	defer srv.Close()

	src, err := NewSource("submission-queue", testConfig(t, srv))
	if err != nil {
		t.Fatal(err)
	}
	if src.Name() != "submission-queue" {
		t.Error("unexpected name", src.Name())
	}

	n, err := src.Backlog(context.Background())
	if err != nil {
		t.Fatal("unexpected error", err)
	}
	if n != 5 {
		t.Error("expected ready + unacknowledged = 5, got", n)
	}
	if err := src.Probe(context.Background()); err != nil {
		t.Error("unexpected probe error", err)
	}
}

func TestBacklogMissingQueue(t *testing.T) {
	srv := fakeManagementAPI(t, 0, 0)
	defer srv.Close()

	src, err := NewSource("other-queue", testConfig(t, srv))
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.Backlog(context.Background())

	var cerr *queue.ConnectivityError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected a ConnectivityError, got %T: %v", err, err)
	}
	if cerr.Queue != "other-queue" || cerr.Op != "read backlog" {
		t.Error("unexpected error fields", cerr)
	}
}

func TestBadCredentials(t *testing.T) {
	srv := fakeManagementAPI(t, 0, 0)
	defer srv.Close()

	conf := testConfig(t, srv)
	conf.Password = "wrong"
	src, err := NewSource("submission-queue", conf)
	if err != nil {
		t.Fatal(err)
	}
	var cerr *queue.ConnectivityError
	if err := src.Probe(context.Background()); !errors.As(err, &cerr) {
		t.Error("expected a ConnectivityError, got", err)
	}
}

func TestUnreachable(t *testing.T) {
	srv := fakeManagementAPI(t, 0, 0)
	conf := testConfig(t, srv)
	srv.Close()

	src, err := NewSource("submission-queue", conf)
	if err != nil {
		t.Fatal(err)
	}
	var cerr *queue.ConnectivityError
	if _, err := src.Backlog(context.Background()); !errors.As(err, &cerr) {
		t.Error("expected a ConnectivityError, got", err)
	}
}

func TestCanceledContext(t *testing.T) {
	src := &Source{queue: "submission-queue"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Backlog(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled, got", err)
	}
}
