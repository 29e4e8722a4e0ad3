package actor

import "context"

// Actor là danh tính caller do lớp auth bên ngoài gắn vào context.
// Core không xác thực, chỉ đọc để ghi log.
type Actor struct {
	UserID string
	Role   string
}

type ctxKey struct{}

// WithActor gắn actor vào context
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext trả về actor nếu có
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

// LogFields thêm actor_id / actor_role vào fields (không có actor → "system")
func LogFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	a, ok := FromContext(ctx)
	if !ok {
		fields["actor_id"] = "system"
		return fields
	}
	fields["actor_id"] = a.UserID
	if a.Role != "" {
		fields["actor_role"] = a.Role
	}
	return fields
}
