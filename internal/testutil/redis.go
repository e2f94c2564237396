//go:build integration

package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

const defaultRedisAddr = "localhost:6379"

// TestRedisAddr returns the Redis address for integration tests.
// Override with INTEGRATION_REDIS_ADDR environment variable.
func TestRedisAddr() string {
	if addr := os.Getenv("INTEGRATION_REDIS_ADDR"); addr != "" {
		return addr
	}
	return defaultRedisAddr
}

// TestKeyPrefix generates a unique key prefix from the test name and current timestamp.
func TestKeyPrefix(t *testing.T) string {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "-")
	return fmt.Sprintf("test:%s:%d:", name, time.Now().UnixNano())
}
