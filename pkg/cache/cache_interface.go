package cache

import (
	"context"
	"time"
)

// Counter là phần của cache layer mà core dùng: atomic counter có TTL.
// Cho phép swap implementation (Redis, in-memory cho test).
type Counter interface {
	// Increment tăng key lên 1 và trả về giá trị sau khi tăng
	// (key chưa tồn tại → 1)
	Increment(ctx context.Context, key string) (int64, error)

	// Expire đặt TTL cho key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping kiểm tra connection
	Ping(ctx context.Context) error
}
