package container

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/config"
)

// ── Conditions ────────────────────────────────────────────────────────────────

// Condition decides, against the container's configuration, whether a
// definition takes part in the container.
type Condition interface {
	Matches(r config.Resolver) (bool, error)
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(r config.Resolver) (bool, error)

func (f ConditionFunc) Matches(r config.Resolver) (bool, error) { return f(r) }

// OnProperty matches when key resolves to any value.
func OnProperty(key string) Condition {
	return ConditionFunc(func(r config.Resolver) (bool, error) {
		_, ok, err := r.Resolve(key)
		return ok, err
	})
}

// OnPropertyValue matches when key resolves to value, ignoring case.
//
//	container.Define("redisCache", NewRedisCache).
//	    When(container.OnPropertyValue("cache.driver", "redis"))
func OnPropertyValue(key, value string) Condition {
	return ConditionFunc(func(r config.Resolver) (bool, error) {
		v, ok, err := r.Resolve(key)
		if err != nil || !ok {
			return false, err
		}
		return strings.EqualFold(v, value), nil
	})
}

// AllOf matches when every condition matches. It stops at the first
// mismatch or error.
func AllOf(conds ...Condition) Condition {
	return ConditionFunc(func(r config.Resolver) (bool, error) {
		for _, c := range conds {
			ok, err := c.Matches(r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}

// When returns a copy of d that is only registered when every condition
// matches. Conditions are checked at Build, or by Register once the
// container is ready.
func (d Definition) When(conds ...Condition) Definition {
	d.Conditions = append(append([]Condition(nil), d.Conditions...), conds...)
	return d
}

// admits evaluates def's conditions against the container's configuration.
func (c *Container) admits(def Definition) (bool, error) {
	if len(def.Conditions) == 0 {
		return true, nil
	}
	ok, err := AllOf(def.Conditions...).Matches(c.cfg)
	if err != nil {
		return false, &InvalidDefinitionError{Name: def.Name, Reason: fmt.Sprintf("condition: %v", err), Err: err}
	}
	return ok, nil
}

// applyConditions removes the definitions whose conditions do not match.
func (c *Container) applyConditions() error {
	for _, def := range c.registry.Definitions() {
		ok, err := c.admits(def)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := c.registry.Remove(def.Name); err != nil {
			return err
		}
		c.log.Debug("bean skipped by condition", zap.String("bean", def.Name))
	}
	return nil
}
