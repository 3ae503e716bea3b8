package log

import "go.uber.org/zap"

const (
	FieldNameComponent = "component"
	FieldNameCache     = "cache"
	FieldNameSession   = "session"
)

// FieldComponent returns a zap field with the component name.
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldCache returns a zap field naming a cache instance (blob, text).
func FieldCache(name string) zap.Field {
	return zap.String(FieldNameCache, name)
}

// FieldSession returns a zap field with an opaque session id.
func FieldSession(id string) zap.Field {
	return zap.String(FieldNameSession, id)
}
