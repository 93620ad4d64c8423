package spell

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/boltdb/bolt"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

var (
	bucketMeta  = []byte("meta")
	bucketWords = []byte("words")
	bucketGrams = []byte("grams")

	keyGeneration = []byte("generation")
	keyField      = []byte("field")
	keyGramSize   = []byte("gram_size")
	keyMinSim     = []byte("min_similarity")
)

// FileName satisfies the generation sidecar contract.
func (d *Dictionary) FileName() string {
	return FileName
}

// Save writes the dictionary to a bolt file at path, replacing any previous
// file only once the new one is complete.
func (d *Dictionary) Save(path string) error {
	tmp := path + ".tmp"
	os.Remove(tmp)
	db, err := bolt.Open(tmp, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("creating spell store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyGeneration, binary.BigEndian.AppendUint64(nil, d.generation)); err != nil {
			return err
		}
		if err := meta.Put(keyField, []byte(d.field)); err != nil {
			return err
		}
		if err := meta.Put(keyGramSize, binary.BigEndian.AppendUint32(nil, uint32(d.gramSize))); err != nil {
			return err
		}
		if err := meta.Put(keyMinSim, binary.BigEndian.AppendUint64(nil, math.Float64bits(d.minSim))); err != nil {
			return err
		}

		words, err := tx.CreateBucket(bucketWords)
		if err != nil {
			return err
		}
		words.FillPercent = 1.0
		for ord, w := range d.words {
			if err := words.Put([]byte(w), binary.BigEndian.AppendUint32(nil, uint32(ord))); err != nil {
				return err
			}
		}

		grams, err := tx.CreateBucket(bucketGrams)
		if err != nil {
			return err
		}
		for g, bm := range d.grams {
			data, err := bm.ToBytes()
			if err != nil {
				return fmt.Errorf("encoding gram %q: %w", g, err)
			}
			if err := grams.Put([]byte(g), data); err != nil {
				return err
			}
		}
		return nil
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing spell store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing spell store: %w", err)
	}
	return nil
}

// Load reads a dictionary saved by Save and checks that it was derived from
// the expected generation. A mismatch or a damaged file is ErrIndexCorrupt.
func Load(path string, generation uint64) (*Dictionary, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening spell store: %w", err)
	}
	db, err := bolt.Open(path, 0o444, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening spell store: %v", apperrors.ErrIndexCorrupt, err)
	}
	defer db.Close()

	d := &Dictionary{grams: make(map[string]*roaring.Bitmap)}
	err = db.View(func(tx *bolt.Tx) error {
		meta, words, grams := tx.Bucket(bucketMeta), tx.Bucket(bucketWords), tx.Bucket(bucketGrams)
		if meta == nil || words == nil || grams == nil {
			return fmt.Errorf("missing buckets")
		}
		gen := meta.Get(keyGeneration)
		gs := meta.Get(keyGramSize)
		ms := meta.Get(keyMinSim)
		if len(gen) != 8 || len(gs) != 4 || len(ms) != 8 {
			return fmt.Errorf("malformed metadata")
		}
		d.generation = binary.BigEndian.Uint64(gen)
		d.field = string(meta.Get(keyField))
		d.gramSize = int(binary.BigEndian.Uint32(gs))
		d.minSim = math.Float64frombits(binary.BigEndian.Uint64(ms))

		d.words = make([]string, 0, words.Stats().KeyN)
		if err := words.ForEach(func(k, v []byte) error {
			if len(v) != 4 || int(binary.BigEndian.Uint32(v)) != len(d.words) {
				return fmt.Errorf("word %q has ordinal out of sequence", k)
			}
			d.words = append(d.words, string(k))
			return nil
		}); err != nil {
			return err
		}
		return grams.ForEach(func(k, v []byte) error {
			bm := roaring.New()
			if err := bm.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("gram %q: %w", k, err)
			}
			if bm.GetCardinality() > 0 && int(bm.Maximum()) >= len(d.words) {
				return fmt.Errorf("gram %q references ordinal %d beyond vocabulary", k, bm.Maximum())
			}
			d.grams[string(k)] = bm
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: spell store %s: %v", apperrors.ErrIndexCorrupt, path, err)
	}
	if d.generation != generation {
		return nil, fmt.Errorf("%w: spell store built from generation %d, index is generation %d",
			apperrors.ErrIndexCorrupt, d.generation, generation)
	}
	return d, nil
}
