package query

import (
	"github.com/pkg/errors"
)

// Ordering is the direction records are returned in, by id.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

var orderingNames = map[Ordering]string{
	Ascending:  "asc",
	Descending: "desc",
}

func ToOrdering(val string) (Ordering, error) {
	for ordering, name := range orderingNames {
		if name == val {
			return ordering, nil
		}
	}
	return 0, errors.Errorf("unknown ordering %q", val)
}

func FromOrdering(val Ordering) (string, error) {
	name, ok := orderingNames[val]
	if !ok {
		return "", errors.Errorf("unknown ordering %d", val)
	}
	return name, nil
}

func (o Ordering) String() string {
	if name, ok := orderingNames[o]; ok {
		return name
	}
	return "unknown"
}
