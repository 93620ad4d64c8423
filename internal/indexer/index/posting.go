package index

// Posting records one document's occurrences of a term. Positions are
// strictly increasing token positions and Freq == len(Positions).
type Posting struct {
	DocID     uint32   `json:"d"`
	Freq      uint32   `json:"f"`
	Positions []uint32 `json:"p"`
}

// PostingsList is ordered by strictly increasing DocID.
type PostingsList []Posting

func (pl PostingsList) DocFreq() int {
	return len(pl)
}

// Find returns the posting for docID by binary search.
func (pl PostingsList) Find(docID uint32) (Posting, bool) {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if pl[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl) && pl[lo].DocID == docID {
		return pl[lo], true
	}
	return Posting{}, false
}

// DocIDs returns the document ids in order.
func (pl PostingsList) DocIDs() []uint32 {
	ids := make([]uint32, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}
