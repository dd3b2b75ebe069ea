package tree

// SparseEntry is one (index, value) pair of a sparse input row. Rows are
// produced by an external data layer with ascending, duplicate-free
// indices.
type SparseEntry struct {
	Index  uint32
	Fvalue float32
}

type fvecEntry struct {
	fvalue float32
	flag   int32 // -1 marks the slot missing
}

// FVec is a dense feature view materialized from a sparse row. One
// buffer is reused across many queries: every Fill is paired with a Drop
// of the same row before the buffer serves a different one. Unfilled
// slots always report missing.
type FVec struct {
	data []fvecEntry
}

// Init allocates size slots, all missing.
func (f *FVec) Init(size int) {
	f.data = make([]fvecEntry, size)
	for i := range f.data {
		f.data[i].flag = -1
	}
}

// Fill scatters the row's entries into their slots. Indices at or beyond
// the vector size are silently dropped; the tree simply never asks for
// features it was not built with.
func (f *FVec) Fill(row []SparseEntry) {
	for _, e := range row {
		if int(e.Index) >= len(f.data) {
			continue
		}
		f.data[e.Index].fvalue = e.Fvalue
		f.data[e.Index].flag = 0
	}
}

// Drop resets exactly the slots Fill touched back to missing.
func (f *FVec) Drop(row []SparseEntry) {
	for _, e := range row {
		if int(e.Index) >= len(f.data) {
			continue
		}
		f.data[e.Index].flag = -1
	}
}

// Size returns the number of slots.
func (f *FVec) Size() int { return len(f.data) }

// Fvalue returns the value in slot i. Only meaningful when the slot is
// not missing.
func (f *FVec) Fvalue(i int) float32 { return f.data[i].fvalue }

// IsMissing reports whether slot i holds no value.
func (f *FVec) IsMissing(i int) bool { return f.data[i].flag == -1 }
