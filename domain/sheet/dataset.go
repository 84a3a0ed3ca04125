package sheet

import "time"

// Dataset is the ordered set of rows shown in the grid
type Dataset []Row

// Clone returns a deep copy of the dataset
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	for i, row := range d {
		out[i] = row.Clone()
	}
	return out
}

// EnsureSpareRows pads the dataset until at least n trailing rows are empty
func (d Dataset) EnsureSpareRows(n int) Dataset {
	spare := 0
	for i := len(d) - 1; i >= 0 && d[i].IsEmpty(); i-- {
		spare++
	}
	for ; spare < n; spare++ {
		d = append(d, NewEmptyRow())
	}
	return d
}

// Trimmed drops trailing empty rows
func (d Dataset) Trimmed() Dataset {
	end := len(d)
	for end > 0 && d[end-1].IsEmpty() {
		end--
	}
	return d[:end]
}

// Snapshot is the last known persisted state of a dataset.
// It is only used to detect which rows changed before a save.
type Snapshot struct {
	rows    Dataset
	TakenAt time.Time
}

// NewSnapshot deep-copies ds
func NewSnapshot(ds Dataset) Snapshot {
	return Snapshot{rows: ds.Clone(), TakenAt: time.Now()}
}

// Len returns the number of rows captured
func (s Snapshot) Len() int {
	return len(s.rows)
}

// Rows returns a copy of the captured rows
func (s Snapshot) Rows() Dataset {
	return s.rows.Clone()
}

// Accept records row i as persisted, growing the snapshot if needed
func (s *Snapshot) Accept(i int, row Row) {
	for len(s.rows) <= i {
		s.rows = append(s.rows, NewEmptyRow())
	}
	s.rows[i] = row.Clone()
}

// ChangedIndexes returns the positions of rows eligible for persistence:
// non-empty rows that are new or differ from the snapshot row at the same index.
func (s Snapshot) ChangedIndexes(ds Dataset) []int {
	var idx []int
	for i, row := range ds {
		if row.IsEmpty() {
			continue
		}
		if i < len(s.rows) && row.Equal(s.rows[i]) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// Changed returns copies of the rows eligible for persistence in dataset order
func (s Snapshot) Changed(ds Dataset) []Row {
	idx := s.ChangedIndexes(ds)
	rows := make([]Row, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, ds[i].Clone())
	}
	return rows
}
