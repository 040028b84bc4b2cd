package tagjson

import (
	"errors"
)

// Resolver turns a qualname found in the input back into a class.
type Resolver interface {
	Resolve(qualname string) (*Class, error)
}

// Objects resolves names against an allow-list of classes. Exactly one class
// may carry a given name.
type Objects []*Class

// Resolve returns the single class named qualname.
func (o Objects) Resolve(qualname string) (*Class, error) {
	var found *Class
	count := 0
	for _, c := range o {
		if c != nil && c.Name == qualname {
			found = c
			count++
		}
	}
	switch count {
	case 0:
		return nil, notFound(qualname)
	case 1:
		return found, nil
	default:
		return nil, &AmbiguousObjectError{
			DeserializeError: DeserializeError{Qualname: qualname, Reason: "more than one object has this name"},
			Count:            count,
		}
	}
}

// Redirects resolves names through an explicit name → class mapping.
type Redirects map[string]*Class

// Resolve returns the class mapped to qualname.
func (r Redirects) Resolve(qualname string) (*Class, error) {
	if c, ok := r[qualname]; ok && c != nil {
		return c, nil
	}
	return nil, notFound(qualname)
}

func notFound(qualname string) *ObjectNotFoundError {
	return &ObjectNotFoundError{
		DeserializeError: DeserializeError{Qualname: qualname, Reason: "object not found"},
	}
}

// registry consults objects first and redirects second.
type registry struct {
	objects   Objects
	redirects Redirects
}

// NewResolver returns the resolver used by DeserializeWithOptions: with
// neither objects nor redirects every lookup fails with NoObjectsError.
func NewResolver(objects []*Class, redirects map[string]*Class) Resolver {
	return registry{objects: objects, redirects: redirects}
}

func (r registry) Resolve(qualname string) (*Class, error) {
	if len(r.objects) == 0 && len(r.redirects) == 0 {
		return nil, &NoObjectsError{
			DeserializeError: DeserializeError{Qualname: qualname, Reason: "no objects or redirects given"},
		}
	}
	if len(r.objects) > 0 {
		c, err := r.objects.Resolve(qualname)
		if err == nil {
			return c, nil
		}
		var nf *ObjectNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	if len(r.redirects) > 0 {
		return r.redirects.Resolve(qualname)
	}
	return nil, notFound(qualname)
}
