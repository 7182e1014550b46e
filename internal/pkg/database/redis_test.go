package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_ConnectionError(t *testing.T) {
	client, err := NewRedisClient(models.RedisConfig{Host: "127.0.0.1", Port: 1})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestRedisClient_GeoAdd(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectGeoAdd("driver:geo", &redis.GeoLocation{
		Longitude: -86.0,
		Latitude:  12.0,
		Name:      "driver-1",
	}).SetVal(1)

	err := client.GeoAdd(context.Background(), "driver:geo", -86.0, 12.0, "driver-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GeoRemove(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectZRem("driver:geo", "driver-1").SetVal(1)

	err := client.GeoRemove(context.Background(), "driver:geo", "driver-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GeoRadius(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	expected := []redis.GeoLocation{
		{Name: "driver-1", Longitude: -86.001, Latitude: 12.001, Dist: 0.15},
	}
	mock.ExpectGeoRadius("driver:geo", -86.0, 12.0, &redis.GeoRadiusQuery{
		Radius:    1,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).SetVal(expected)

	got, err := client.GeoRadius(context.Background(), "driver:geo", -86.0, 12.0, 1)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_GeoRadius_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}

	mock.ExpectGeoRadius("driver:geo", -86.0, 12.0, &redis.GeoRadiusQuery{
		Radius:    1,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).SetErr(errors.New("connection refused"))

	_, err := client.GeoRadius(context.Background(), "driver:geo", -86.0, 12.0, 1)

	assert.Error(t, err)
}

func TestRedisClient_SetMGetDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := &RedisClient{Client: db}
	ctx := context.Background()

	mock.ExpectSet("driver:presence:1", "{}", time.Minute).SetVal("OK")
	mock.ExpectMGet("driver:presence:1", "driver:presence:2").SetVal([]interface{}{"{}", nil})
	mock.ExpectDel("driver:presence:1").SetVal(1)

	require.NoError(t, client.Set(ctx, "driver:presence:1", "{}", time.Minute))
	vals, err := client.MGet(ctx, "driver:presence:1", "driver:presence:2")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"{}", nil}, vals)
	require.NoError(t, client.Delete(ctx, "driver:presence:1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
