// Package book holds exact scores for shallow positions, so that the
// opening can be played without searching.
package book

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/cache"
)

var ErrMalformedLine = errors.New("malformed book line")

// Book maps position keys to exact scores for the side to move. It is never
// modified after it is read.
type Book struct {
	scores map[uint64]int8
	depth  int
	digest uint64
}

// Load reads a book dataset from a file.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("entries", b.Len()).Int("depth", b.depth).
		Str("digest", fmt.Sprintf("%016x", b.digest)).Msg("book-loaded")
	return b, nil
}

// Cached is Load, but each path is read at most once per process.
func Cached(path string) (*Book, error) {
	return cache.Load(path, Load)
}

// Read parses lines of the form "<move-string> <score>". Blank lines are
// skipped; anything else that does not parse is an error.
func Read(r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b := &Book{
		scores: make(map[uint64]int8),
		digest: xxhash.Sum64(data),
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		moves, scoreStr, ok := SplitLine(line)
		if !ok {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, lineNo, line)
		}
		pos, err := board.FromMoves(moves)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, lineNo, err)
		}
		score, err := strconv.ParseInt(scoreStr, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, lineNo, err)
		}
		b.scores[pos.Key()] = int8(score)
		if pos.Plies() > b.depth {
			b.depth = pos.Plies()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// SplitLine splits "<move-string> <score>". The empty position is written
// with an empty move string, so its line starts with whitespace.
func SplitLine(line string) (moves, score string, ok bool) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 2:
		return fields[0], fields[1], true
	case len(fields) == 1 && unicode.IsSpace(rune(line[0])):
		return "", fields[0], true
	}
	return "", "", false
}

// Lookup returns the stored score for a position key.
func (b *Book) Lookup(key uint64) (int, bool) {
	if b == nil {
		return 0, false
	}
	s, ok := b.scores[key]
	return int(s), ok
}

// LookupPosition tries the position and then its mirror image.
func (b *Book) LookupPosition(p *board.Position) (int, bool) {
	if b == nil || p.Plies() > b.depth {
		return 0, false
	}
	if s, ok := b.Lookup(p.Key()); ok {
		return s, true
	}
	return b.Lookup(p.Mirror().Key())
}

// Depth is the number of plies of the deepest position in the book.
func (b *Book) Depth() int {
	if b == nil {
		return -1
	}
	return b.depth
}

func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.scores)
}

// Digest is the xxhash of the raw dataset.
func (b *Book) Digest() uint64 {
	if b == nil {
		return 0
	}
	return b.digest
}

// Writer emits book lines.
type Writer struct {
	w *bufio.Writer
	n int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(moves string, score int) error {
	w.n++
	_, err := fmt.Fprintf(w.w, "%s %d\n", moves, score)
	return err
}

// Count is the number of lines written so far.
func (w *Writer) Count() int {
	return w.n
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}
