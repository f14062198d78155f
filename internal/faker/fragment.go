package faker

// fragment is a piecewise linear profile over length one-second slots.
// A leaf interpolates from start towards end; a divided fragment delegates
// to its parts, whose lengths sum to length.
type fragment struct {
	length     int
	start, end float64
	parts      []*fragment
}

func newFragment(length int, start, end float64) *fragment {
	return &fragment{length: length, start: start, end: end}
}

// at returns the value at slot i. Negative indexes count from the end and
// indexes past the end hold the last value.
func (f *fragment) at(i int) float64 {
	if i < 0 {
		i += f.length
	}
	if i >= f.length {
		i = f.length - 1
	}
	if i < 0 {
		return f.start
	}
	if f.parts == nil {
		return f.start + (f.end-f.start)/float64(f.length)*float64(i)
	}
	p, j := f.locate(i)
	return p.at(j)
}

func (f *fragment) locate(i int) (*fragment, int) {
	for _, p := range f.parts {
		if i < p.length {
			return p, i
		}
		i -= p.length
	}
	return nil, 0
}

// divide splits the fragment at slot i, moving the value there by
// displacement.
func (f *fragment) divide(i int, displacement float64) {
	f.cut(i, func(v float64) float64 { return v + displacement })
}

// pin splits the fragment at slot i, fixing the value there to v.
func (f *fragment) pin(i int, v float64) {
	f.cut(i, func(float64) float64 { return v })
}

// cut is a no-op on a boundary between existing parts.
func (f *fragment) cut(i int, value func(float64) float64) {
	if f.parts != nil {
		if p, j := f.locate(i); p != nil && j != 0 {
			p.cut(j, value)
		}
		return
	}
	switch {
	case i == 0:
		f.start = value(f.start)
	case i == f.length:
		f.end = value(f.end)
	case i > 0 && i < f.length:
		v := value(f.at(i))
		f.parts = []*fragment{
			newFragment(i, f.start, v),
			newFragment(f.length-i, v, f.end),
		}
	}
}

// force sets n slots starting at from to the constant v.
func (f *fragment) force(from, n int, v float64) {
	if from < 0 {
		n += from
		from = 0
	}
	if n <= 0 || from >= f.length {
		return
	}
	if from == 0 && n >= f.length {
		f.start, f.end, f.parts = v, v, nil
		return
	}
	if f.parts == nil {
		keep := func(x float64) float64 { return x }
		if from > 0 {
			f.cut(from, keep)
		} else {
			f.cut(n, keep)
		}
	}
	for _, p := range f.parts {
		if from >= p.length {
			from -= p.length
			continue
		}
		m := min(n, p.length-from)
		p.force(from, m, v)
		n -= m
		if n == 0 {
			return
		}
		from = 0
	}
}

// addPause zeroes length slots centred on at, ramping the profile down over
// leadIn slots before and back up over leadOut slots after. It reports false
// when the pause would start past the end of the profile.
func (f *fragment) addPause(at, leadIn, length, leadOut int) bool {
	start := max(0, at-length/2)
	if start >= f.length || length <= 0 {
		return false
	}
	end := min(f.length, start+length)
	inStart := max(0, start-leadIn)
	outEnd := min(f.length, end+leadOut)

	inValue, outValue := f.at(inStart), f.at(outEnd)
	if start > 0 {
		f.pin(inStart, inValue)
	}
	if end < f.length {
		f.pin(outEnd, outValue)
	}
	if start > 0 {
		f.pin(start, 0)
	}
	if end < f.length {
		f.pin(end, 0)
	}
	f.force(start, end-start, 0)
	return true
}

func (f *fragment) values() []float64 {
	out := make([]float64, f.length)
	for i := range out {
		out[i] = f.at(i)
	}
	return out
}
