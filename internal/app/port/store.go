package port

// Store is a persisted string key-value store. Get distinguishes "no
// entry" from "entry holding a zero value" via the second return.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}
