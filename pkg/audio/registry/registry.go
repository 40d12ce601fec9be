package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type factoryWithPriority[F any] struct {
	Priority int
	TypeName string
	Factory  F
}

type registry[F any] struct {
	Locker    sync.Mutex
	Kind      string
	Factories map[reflect.Type]factoryWithPriority[F]
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{
		Kind:      kind,
		Factories: map[reflect.Type]factoryWithPriority[F]{},
	}
}

func (r *registry[F]) register(priority int, factory F) {
	t := reflect.ValueOf(factory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.Locker.Lock()
	defer r.Locker.Unlock()
	if _, ok := r.Factories[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of %s of type %v", r.Kind, t))
	}
	r.Factories[t] = factoryWithPriority[F]{
		Priority: priority,
		TypeName: t.String(),
		Factory:  factory,
	}
}

// list returns the factories ordered by priority (the highest first);
// factories of equal priority are ordered by type name to keep the order stable.
func (r *registry[F]) list() []F {
	r.Locker.Lock()
	var factoriesWithPriorities []factoryWithPriority[F]
	for _, factory := range r.Factories {
		factoriesWithPriorities = append(factoriesWithPriorities, factory)
	}
	r.Locker.Unlock()

	sort.Slice(factoriesWithPriorities, func(i, j int) bool {
		a, b := factoriesWithPriorities[i], factoriesWithPriorities[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.TypeName < b.TypeName
	})

	factories := make([]F, 0, len(factoriesWithPriorities))
	for _, factory := range factoriesWithPriorities {
		factories = append(factories, factory.Factory)
	}
	return factories
}
