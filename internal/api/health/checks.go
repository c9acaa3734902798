package health

import (
	"context"

	"vetml/internal/ml/registry"
	"vetml/pkg/errors"
)

// ModelsCheck fails while no species model is registered
func ModelsCheck(holder *registry.Holder) Check {
	return Check{
		Name: "models",
		Fn: func(ctx context.Context) error {
			if holder.Load().Len() == 0 {
				return errors.Wrap(errors.ErrUnavailable, "no species models registered")
			}
			return nil
		},
	}
}

// PingCheck wraps any dependency exposing a context-aware health probe
func PingCheck(name string, ping func(ctx context.Context) error) Check {
	return Check{Name: name, Fn: ping}
}
