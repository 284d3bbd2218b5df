package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_Native(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "cropvol",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/cropvol", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "5s", u.Query().Get("dial_timeout"))
	assert.Equal(t, "30", u.Query().Get("max_execution_time"))
	assert.Empty(t, u.Query().Get("async_insert"))
}

func TestBuildDSN_HTTPAsync(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "cropvol",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "1", u.Query().Get("async_insert"))
	assert.Equal(t, "1", u.Query().Get("wait_for_async_insert"))
}

func TestBuildDSN_DefaultPorts(t *testing.T) {
	u, err := url.Parse(buildDSN(ClientConfig{Host: "ch.local", Database: "cropvol"}))
	require.NoError(t, err)
	assert.Equal(t, "9000", u.Port())

	u, err = url.Parse(buildDSN(ClientConfig{Host: "ch.local", Database: "cropvol", UseHTTP: true}))
	require.NoError(t, err)
	assert.Equal(t, "8123", u.Port())
}

func TestWithAsyncInsert_WaitNeedsAsync(t *testing.T) {
	cfg := defaultClientConfig()
	WithAsyncInsert(false, true)(cfg)
	assert.False(t, cfg.WaitForAsync)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(WithAddr("", 9000))
	assert.ErrorContains(t, err, "host is required")
}
