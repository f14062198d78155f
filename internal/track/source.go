package track

import (
	"io"
	"sort"
)

// Source yields records in best-effort increasing time order.
// Next returns io.EOF once the stream is exhausted.
type Source interface {
	Name() string
	Next() (Record, error)
}

// SliceSource replays an in-memory list of records.
type SliceSource struct {
	name    string
	records []Record
	pos     int
}

// NewSliceSource returns a Source over records. Records are yielded as given;
// names left empty are filled with the source name.
func NewSliceSource(name string, records []Record) *SliceSource {
	return &SliceSource{name: name, records: records}
}

func (s *SliceSource) Name() string { return s.name }

func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	if r.Name == "" {
		r.Name = s.name
	}
	return r, nil
}

// Len returns the number of records the source holds.
func (s *SliceSource) Len() int { return len(s.records) }

// Collect drains src into a slice.
func Collect(src Source) ([]Record, error) {
	var out []Record
	for {
		r, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
}

// SortByTime orders records by timestamp, keeping the input order of ties.
func SortByTime(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})
}
