package node

import (
	"reflect"
	"sync"

	"golang.org/x/xerrors"
)

// reflectInjector keeps the dependencies in injection order and resolves them
// by type compatibility. Daemon actions can inject while others resolve, for
// instance when the proxy is started, so the access is guarded.
//
// - implements node.Injector
type reflectInjector struct {
	sync.RWMutex
	deps []reflect.Value
}

// NewInjector returns a empty injector.
func NewInjector() Injector {
	return &reflectInjector{}
}

// Resolve implements node.Injector. A dependency of the exact type of the
// target wins over the others, otherwise the most recent compatible one is
// used.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	target := rv.Elem()
	if !target.IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	inj.RLock()
	defer inj.RUnlock()

	var match *reflect.Value

	for i := len(inj.deps) - 1; i >= 0; i-- {
		dep := inj.deps[i]

		if dep.Type() == target.Type() {
			match = &dep
			break
		}

		if match == nil && dep.Type().AssignableTo(target.Type()) {
			match = &dep
		}
	}

	if match == nil {
		return xerrors.Errorf("couldn't find dependency for '%v'", target.Type())
	}

	target.Set(*match)

	return nil
}

// Inject implements node.Injector. A dependency replaces the previous one of
// the same type, for instance when a component restarts.
func (inj *reflectInjector) Inject(v interface{}) {
	value := reflect.ValueOf(v)
	if !value.IsValid() {
		return
	}

	inj.Lock()
	defer inj.Unlock()

	for i, dep := range inj.deps {
		if dep.Type() == value.Type() {
			inj.deps = append(inj.deps[:i], inj.deps[i+1:]...)
			break
		}
	}

	inj.deps = append(inj.deps, value)
}
