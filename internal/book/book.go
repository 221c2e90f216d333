// Package book stores the event logs of accepted rounds, one JSON object per line.
package book

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"reelsim/internal/round"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ext is the file suffix of compressed books.
const Ext = ".zst"

// Book is the stored form of one round.
type Book struct {
	ID           uint64        `json:"id"`
	Payout       int64         `json:"payoutMultiplier"`
	Criterion    string        `json:"criteria"`
	BaseGameWins int64         `json:"baseGameWins"`
	FreeGameWins int64         `json:"freeGameWins"`
	Seed         uint64        `json:"seed"`
	Events       []round.Event `json:"events"`
}

// FromRound converts a finished round.
func FromRound(r *round.Round) *Book {
	return &Book{
		ID:           r.ID,
		Payout:       r.Payout,
		Criterion:    r.Criterion,
		BaseGameWins: r.BaseWin,
		FreeGameWins: r.FreeWin,
		Seed:         r.Seed,
		Events:       r.Events,
	}
}

// Writer appends books to a stream. It is not safe for concurrent use.
type Writer struct {
	buf   *bufio.Writer
	zw    *zstd.Encoder
	close io.Closer
	n     int
}

// NewWriter writes to w, compressing with zstd when compress is set.
func NewWriter(w io.Writer, compress bool) (*Writer, error) {
	bw := &Writer{}
	if compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, err
		}
		bw.zw = zw
		w = zw
	}
	bw.buf = bufio.NewWriterSize(w, 1<<16)
	return bw, nil
}

// Create opens path for writing. Paths ending in .zst are compressed.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, strings.HasSuffix(path, Ext))
	if err != nil {
		f.Close()
		return nil, err
	}
	w.close = f
	return w, nil
}

// Write appends one book.
func (w *Writer) Write(b *Book) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(raw); err != nil {
		return err
	}
	w.n++
	return w.buf.WriteByte('\n')
}

// Consume writes a batch of accepted rounds.
func (w *Writer) Consume(rounds []*round.Round) error {
	for _, r := range rounds {
		if err := w.Write(FromRound(r)); err != nil {
			return err
		}
	}
	return nil
}

// Count is the number of books written so far.
func (w *Writer) Count() int { return w.n }

// Close flushes buffered books and closes the underlying file if Create opened it.
func (w *Writer) Close() error {
	err := w.buf.Flush()
	if w.zw != nil {
		err = errors.Join(err, w.zw.Close())
	}
	if w.close != nil {
		err = errors.Join(err, w.close.Close())
	}
	return err
}

// Reader iterates books from a stream.
type Reader struct {
	sc    *bufio.Scanner
	zr    *zstd.Decoder
	close io.Closer
}

// NewReader reads from r, decompressing when compressed is set.
func NewReader(r io.Reader, compressed bool) (*Reader, error) {
	br := &Reader{}
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		br.zr = zr
		r = zr
	}
	br.sc = bufio.NewScanner(r)
	br.sc.Buffer(make([]byte, 0, 1<<16), 64<<20)
	return br, nil
}

// Open opens a books file written by Create.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f, strings.HasSuffix(path, Ext))
	if err != nil {
		f.Close()
		return nil, err
	}
	r.close = f
	return r, nil
}

// Next returns the next book, or io.EOF after the last one.
func (r *Reader) Next() (*Book, error) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var b Book
		if err := json.Unmarshal(line, &b); err != nil {
			return nil, err
		}
		return &b, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the decoder and the file.
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.close != nil {
		return r.close.Close()
	}
	return nil
}
