package table

// Cell is one table value. The zero Cell is missing.
type Cell struct {
	value string
	valid bool
}

func Str(s string) Cell {
	return Cell{value: s, valid: true}
}

func Missing() Cell {
	return Cell{}
}

func (c Cell) IsMissing() bool {
	return !c.valid
}

// Get returns the value and whether it is present.
func (c Cell) Get() (string, bool) {
	return c.value, c.valid
}

// Equals reports whether the cell is present and holds exactly s.
func (c Cell) Equals(s string) bool {
	return c.valid && c.value == s
}

func (c Cell) String() string {
	if !c.valid {
		return ""
	}
	return c.value
}

// boxed is the dataframe-go representation: nil when missing.
func (c Cell) boxed() interface{} {
	if !c.valid {
		return nil
	}
	return c.value
}

func unbox(v interface{}) Cell {
	s, ok := v.(string)
	if !ok {
		return Missing()
	}
	return Str(s)
}
