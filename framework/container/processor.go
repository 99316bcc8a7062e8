package container

import (
	"go.uber.org/zap"

	"github.com/km-arc/summer/framework/typeid"
)

// BeanPostProcessor hooks into every bean's construction. Both methods
// receive the current instance and return the instance to continue with,
// which may be a wrapper. The returned value must still be assignable to
// the bean's declared type.
type BeanPostProcessor interface {
	BeforeInit(bean any, name string) (any, error)
	AfterInit(bean any, name string) (any, error)
}

// FactoryPostProcessor runs once at the start of Build, before any singleton
// is created, and may inspect or alter the registered definitions.
type FactoryPostProcessor interface {
	PostProcessDefinitions(reg DefinitionRegistry) error
}

// DefinitionRegistry is the view of the registry given to factory
// post-processors.
type DefinitionRegistry interface {
	Register(def Definition) error
	Replace(def Definition) error
	Remove(name string) error
	Definition(name string) (Definition, bool)
	Definitions() []Definition
	NamesForType(id typeid.ID) []string
}

var _ DefinitionRegistry = (*Registry)(nil)

// PostProcessorFuncs adapts a pair of functions to BeanPostProcessor.
// A nil function passes the bean through unchanged.
type PostProcessorFuncs struct {
	Before func(bean any, name string) (any, error)
	After  func(bean any, name string) (any, error)
}

func (p PostProcessorFuncs) BeforeInit(bean any, name string) (any, error) {
	if p.Before == nil {
		return bean, nil
	}
	return p.Before(bean, name)
}

func (p PostProcessorFuncs) AfterInit(bean any, name string) (any, error) {
	if p.After == nil {
		return bean, nil
	}
	return p.After(bean, name)
}

// FactoryPostProcessorFunc adapts a function to FactoryPostProcessor.
type FactoryPostProcessorFunc func(reg DefinitionRegistry) error

func (f FactoryPostProcessorFunc) PostProcessDefinitions(reg DefinitionRegistry) error {
	return f(reg)
}

// LoggingPostProcessor logs each bean as it passes through initialisation.
type LoggingPostProcessor struct {
	Log *zap.Logger
}

func (p LoggingPostProcessor) BeforeInit(bean any, name string) (any, error) {
	p.logger().Debug("bean initialising", zap.String("bean", name), zap.Stringer("type", typeid.OfValue(bean)))
	return bean, nil
}

func (p LoggingPostProcessor) AfterInit(bean any, name string) (any, error) {
	p.logger().Debug("bean initialised", zap.String("bean", name), zap.Stringer("type", typeid.OfValue(bean)))
	return bean, nil
}

func (p LoggingPostProcessor) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
