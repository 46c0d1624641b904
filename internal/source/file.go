package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sheetview/pkg/cell"
)

func init() {
	Register("csv", func(l *slog.Logger) Loader { return &CSVLoader{Logger: l} })
	Register("json", func(l *slog.Logger) Loader { return &JSONLoader{Logger: l} })
	Register("yaml", func(l *slog.Logger) Loader { return &YAMLLoader{Logger: l} })
}

func openFile(cfg Config) (*os.File, error) {
	if cfg.Path == "" {
		return nil, errors.New("source path not specified")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}
	return f, nil
}

// CSVLoader reads delimited text with a header row. Files ending in .tsv are
// tab separated. Empty fields leave the key out of the record.
type CSVLoader struct {
	Logger *slog.Logger
}

// Load reads the file named by cfg.Path.
func (l *CSVLoader) Load(_ context.Context, cfg Config) (*Table, error) {
	f, err := openFile(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	comma := ','
	if strings.EqualFold(filepath.Ext(cfg.Path), ".tsv") {
		comma = '\t'
	}
	return ReadCSV(f, comma)
}

// ReadCSV parses delimited text whose first row names the columns.
func ReadCSV(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	tbl := &Table{}
	for i, key := range header {
		key = strings.TrimSpace(key)
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		header[i] = key
		tbl.addKey(key)
	}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(tbl.Records)+2, err)
		}
		rec := make(cell.Record, len(header))
		for i, field := range fields {
			if i >= len(header) || strings.TrimSpace(field) == "" {
				continue
			}
			rec[header[i]] = cell.Parse(field)
		}
		tbl.Records = append(tbl.Records, rec)
	}
	return tbl, nil
}

// JSONLoader reads either an array of objects or JSON lines (one object per
// line). Numbers are decoded exactly, so integers stay integers.
type JSONLoader struct {
	Logger *slog.Logger
}

// Load reads the file named by cfg.Path.
func (l *JSONLoader) Load(_ context.Context, cfg Config) (*Table, error) {
	f, err := openFile(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadJSON(f)
}

// ReadJSON decodes an array of objects or a stream of objects. Keys are
// taken in the order they first appear in the input.
func ReadJSON(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)

	var objects []json.RawMessage
	if first == '[' {
		if err := dec.Decode(&objects); err != nil {
			return nil, fmt.Errorf("failed to decode JSON array: %w", err)
		}
	} else {
		for {
			var obj json.RawMessage
			err := dec.Decode(&obj)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to decode JSON object %d: %w", len(objects)+1, err)
			}
			objects = append(objects, obj)
		}
	}

	tbl := &Table{}
	for i, obj := range objects {
		keys, err := objectKeys(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to decode JSON object %d: %w", i+1, err)
		}
		row := make(map[string]any, len(keys))
		od := json.NewDecoder(bytes.NewReader(obj))
		od.UseNumber()
		if err := od.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode JSON object %d: %w", i+1, err)
		}
		for _, key := range keys {
			tbl.addKey(key)
		}
		tbl.Records = append(tbl.Records, cell.RecordFrom(row))
	}
	return tbl, nil
}

// objectKeys lists the keys of one JSON object in document order.
func objectKeys(obj []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if tok != json.Delim('{') {
		return nil, errors.New("not an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		keys = append(keys, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// skipValue consumes one value, descending into arrays and objects.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// peekNonSpace skips a byte order mark and leading whitespace and returns the
// next byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// YAMLLoader reads a sequence of mappings. Key order follows the document.
type YAMLLoader struct {
	Logger *slog.Logger
}

// Load reads the file named by cfg.Path.
func (l *YAMLLoader) Load(_ context.Context, cfg Config) (*Table, error) {
	f, err := openFile(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadYAML(f)
}

// ReadYAML decodes a top-level sequence of mappings.
func ReadYAML(r io.Reader) (*Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &Table{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a sequence of mappings", root.Line)
	}

	tbl := &Table{}
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping", item.Line)
		}
		rec := make(cell.Record, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			key := item.Content[i].Value
			var val any
			if err := item.Content[i+1].Decode(&val); err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Content[i+1].Line, err)
			}
			tbl.addKey(key)
			rec[key] = cell.From(val)
		}
		tbl.Records = append(tbl.Records, rec)
	}
	return tbl, nil
}
