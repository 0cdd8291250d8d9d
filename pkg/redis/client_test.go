package redis_test

import (
	"context"
	"testing"

	"rsi-website-backend/pkg/redis"

	"github.com/stretchr/testify/assert"
)

func TestConnectRequiresURL(t *testing.T) {
	client, err := redis.Connect(context.Background(), redis.Config{})
	assert.Nil(t, client)
	assert.ErrorIs(t, err, redis.ErrNotConfigured)
}

func TestConnectRejectsInvalidURL(t *testing.T) {
	client, err := redis.Connect(context.Background(), redis.Config{URL: "http://localhost:6379"})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "invalid URL")
}

func TestHealthCheckWithoutClient(t *testing.T) {
	assert.Error(t, redis.HealthCheck(context.Background(), nil))
}
