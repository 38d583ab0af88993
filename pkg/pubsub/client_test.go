package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

func TestTopicResourceName(t *testing.T) {
	tests := []struct {
		name    string
		project string
		topic   string
		want    string
	}{
		{name: "bare id", project: "acme", topic: "fulfillment-domain-events", want: "projects/acme/topics/fulfillment-domain-events"},
		{name: "trimmed", project: " acme ", topic: " events ", want: "projects/acme/topics/events"},
		{name: "full name kept", project: "other", topic: "projects/acme/topics/events", want: "projects/acme/topics/events"},
		{name: "empty topic", project: "acme", topic: "  ", want: ""},
		{name: "missing project", project: "", topic: "events", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TopicResourceName(tt.project, tt.topic); got != tt.want {
				t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tt.project, tt.topic, got, tt.want)
			}
		})
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("events") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on nil client to fail")
	}
}

func newFakeServer(t *testing.T, topics ...string) []option.ClientOption {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	for _, topic := range topics {
		_, err := srv.GServer.CreateTopic(context.Background(), &pubsubpb.Topic{Name: TopicResourceName("acme", topic)})
		require.NoError(t, err)
	}
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	return []option.ClientOption{option.WithGRPCConn(conn), option.WithoutAuthentication()}
}

func TestNewClientChecksEveryTopic(t *testing.T) {
	gcp := config.GCPConfig{ProjectID: "acme"}
	cfg := config.PubSubConfig{DomainTopic: "domain", LoyaltyTopic: "loyalty"}

	_, err := NewClient(context.Background(), gcp, cfg, logger.Nop(), newFakeServer(t, "domain")...)
	require.ErrorContains(t, err, `topic "loyalty" does not exist`)

	client, err := NewClient(context.Background(), gcp, cfg, logger.Nop(), newFakeServer(t, "domain", "loyalty")...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()))
}

func TestPublisherIsCachedAndOrdered(t *testing.T) {
	gcp := config.GCPConfig{ProjectID: "acme"}
	client, err := NewClient(context.Background(), gcp, config.PubSubConfig{DomainTopic: "domain"}, nil, newFakeServer(t, "domain")...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	first := client.Publisher("domain")
	require.NotNil(t, first)
	assert.True(t, first.EnableMessageOrdering)
	assert.Same(t, first, client.Publisher("projects/acme/topics/domain"))
}

func TestNewClientRequiresProjectAndTopic(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "domain"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "acme"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errTopicRequired)
}
