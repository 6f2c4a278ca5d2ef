package kv

import (
	"context"
	"encoding/json"
	"time"

	"github.com/entry-nets/sitehub"
)

// GetJSON loads key and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &sitehub.Error{
			Code: sitehub.EInternal,
			Msg:  "corrupt record at " + key,
			Err:  err,
		}
	}
	return nil
}

// SetJSON marshals v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return &sitehub.Error{
			Code: sitehub.EInternal,
			Err:  err,
		}
	}
	return s.Set(ctx, key, b, ttl)
}
