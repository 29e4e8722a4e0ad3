package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"library-backend/pkg/cache"
	"library-backend/pkg/clock"
	"library-backend/pkg/logger"
)

const (
	codeKeyPrefix = "reservation:code:"
	// key theo ngày, giữ thêm một ngày cho request chạy qua nửa đêm
	codeKeyTTL = 48 * time.Hour
)

// CodeGenerator sinh mã reservation dạng RSV-20260510-000042.
//
// Số thứ tự lấy từ Redis INCR trên key theo ngày (UTC). Không có Redis hoặc
// Redis lỗi → fallback RSV-20260510-3F2A9C1B từ uuid. Cột code có UNIQUE,
// trùng mã sẽ thành Conflict chứ không ghi đè.
type CodeGenerator struct {
	counter cache.Counter
	prefix  string
	clock   clock.Clock
}

// NewCodeGenerator: counter có thể nil
func NewCodeGenerator(counter cache.Counter, prefix string, c clock.Clock) *CodeGenerator {
	return &CodeGenerator{
		counter: counter,
		prefix:  prefix,
		clock:   c,
	}
}

// Next trả về mã kế tiếp
func (g *CodeGenerator) Next(ctx context.Context) string {
	day := g.clock.Now().UTC().Format("20060102")

	if g.counter != nil {
		key := codeKeyPrefix + day

		seq, err := g.counter.Increment(ctx, key)
		if err == nil {
			if seq == 1 {
				if err := g.counter.Expire(ctx, key, codeKeyTTL); err != nil {
					logger.Warn("Failed to set TTL on reservation code counter", map[string]interface{}{
						"key":   key,
						"error": err.Error(),
					})
				}
			}
			return fmt.Sprintf("%s-%s-%06d", g.prefix, day, seq)
		}

		logger.Warn("Reservation code counter unavailable, using random code", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", g.prefix, day, random)
}
