package seq

// ChecksNil reports whether cmp inspects elements for nil before hashing.
func ChecksNil[T any](cmp Comparer[T]) bool {
	switch c := any(cmp).(type) {
	case interface{ checksNil() bool }:
		return c.checksNil()
	default:
		return false
	}
}

func (c comparableCmp[T]) checksNil() bool { return c.nillable }

func (c selfCmp[T]) checksNil() bool { return c.nillable }
