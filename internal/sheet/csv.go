package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/payroll-intake/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func loadCSV(path string, opts Options) (*types.RawSheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return readCSV(file, opts)
}

func readCSV(r io.Reader, opts Options) (*types.RawSheet, error) {
	dec, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}

	var src io.Reader = bufio.NewReader(r)
	if dec != nil {
		src = transform.NewReader(src, dec.NewDecoder())
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter(opts.Delimiter, data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return &types.RawSheet{Rows: rows}, nil
}

// decoderFor returns nil for UTF-8 input.
func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251, nil
	case "cp866", "ibm866":
		return charmap.CodePage866, nil
	case "koi8-r":
		return charmap.KOI8R, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// delimiter resolves the configured separator, sniffing the first line
// when none is set.
func delimiter(configured string, data []byte) rune {
	switch configured {
	case "\\t", "tab":
		return '\t'
	case "":
	default:
		return []rune(configured)[0]
	}

	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
