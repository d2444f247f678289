package astidvb

import "sync"

// bytesPool recycles the section copies owned by the table assembler
var bytesPool = &bytesPooler{
	sp: sync.Pool{
		New: func() interface{} {
			// Most sections are way smaller than the 4096 bytes maximum
			return &bytesPoolItem{s: make([]byte, 0, 1024)}
		},
	},
}

type bytesPoolItem struct {
	s []byte
}

type bytesPooler struct {
	sp sync.Pool
}

// copy returns a pooled copy of bs
func (bp *bytesPooler) copy(bs []byte) (i *bytesPoolItem) {
	i = bp.sp.Get().(*bytesPoolItem)
	if cap(i.s) < len(bs) {
		i.s = make([]byte, len(bs))
	}
	i.s = i.s[:len(bs)]
	copy(i.s, bs)
	return
}

// release hands the section buffer back to the pool
// Neither the section data nor its payload must be used afterwards
func (bp *bytesPooler) release(s *Section) {
	if s == nil || s.item == nil {
		return
	}
	bp.sp.Put(s.item)
	s.item = nil
	s.Data = nil
}
