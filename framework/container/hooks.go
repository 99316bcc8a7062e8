package container

import (
	"fmt"
	"reflect"
)

// callHook invokes the exported method named method on bean. The method must
// take no arguments and return nothing or a single error.
func callHook(bean any, method string) error {
	if bean == nil {
		return fmt.Errorf("hook %s: nil bean", method)
	}
	m := reflect.ValueOf(bean).MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("hook %s: %T has no such method", method, bean)
	}

	switch fn := m.Interface().(type) {
	case func():
		fn()
		return nil
	case func() error:
		return fn()
	}
	return fmt.Errorf("hook %s: %T.%s has signature %s, want func() or func() error", method, bean, method, m.Type())
}
