package textvec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/wippyai/fasttext-bridge/embedding"
)

// LabelPrefix marks output (label) rows in a model file.
const LabelPrefix = "__label__"

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed vector file")

// Open loads the model stored at path. Files ending in .gz, .zst or .lz4 are
// decompressed while reading.
func Open(path string, opts ...Option) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, closeFn, err := decompress(f, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer closeFn()

	m, err := Parse(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}

// Loader returns an embedding.Loader that opens files with Open.
func Loader(opts ...Option) embedding.Loader {
	return func(path string) (embedding.Model, error) {
		m, err := Open(path, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func decompress(f *os.File, path string) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case ".lz4":
		return lz4.NewReader(f), func() {}, nil
	default:
		return f, func() {}, nil
	}
}

// Parse reads a model in fastText .vec text form: a "<rows> <dim>" header
// followed by one "token v1 ... vdim" row per line. Rows whose token starts
// with LabelPrefix are label vectors; all others are word vectors.
func Parse(r io.Reader, opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	br := bufio.NewReaderSize(r, 64*1024)

	header, err := readLine(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrMalformed)
		}
		return nil, err
	}
	rows, dim, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	m := newModel(dim, rows)
	seen := 0
	for lineNo := 2; ; lineNo++ {
		line, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields)-1 != dim {
			return nil, fmt.Errorf("%w: line %d: expected %d components, got %d", ErrMalformed, lineNo, dim, len(fields)-1)
		}
		vec := make([]float32, dim)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: component %d: %v", ErrMalformed, lineNo, i, err)
			}
			vec[i] = float32(v)
		}
		m.add(fields[0], vec)
		seen++
	}

	if seen != rows {
		return nil, fmt.Errorf("%w: header declares %d rows, found %d", ErrMalformed, rows, seen)
	}

	m.finish(o)
	return m, nil
}

func parseHeader(line string) (rows, dim int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: header %q: want \"<rows> <dim>\"", ErrMalformed, line)
	}
	rows, err = strconv.Atoi(fields[0])
	if err != nil || rows < 0 {
		return 0, 0, fmt.Errorf("%w: header row count %q", ErrMalformed, fields[0])
	}
	dim, err = strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return 0, 0, fmt.Errorf("%w: header dimension %q", ErrMalformed, fields[1])
	}
	return rows, dim, nil
}

// readLine returns the next line without its terminator. The last line may
// lack a newline; io.EOF is returned only when nothing is left.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
