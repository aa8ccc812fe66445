package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrDatasetParse    = errors.New("dataset parse error")
)

// DefaultNullValues 读取时视为缺失值的单元格内容
var DefaultNullValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan", "1.#IND", "1.#QNAN",
	"<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// ParseError 数据集格式错误
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse dataset %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse dataset %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrDatasetParse }

// LoadOptions 数据集读取选项
type LoadOptions struct {
	// 字段分隔符，单个字符
	Delimiter string `cfg:"delimiter" def:","`
	// 以该字符开头的行视为注释，为空表示不支持注释
	Comment string `cfg:"comment"`
	// 视为缺失值的单元格内容，为空时使用 DefaultNullValues
	NullValues []string `cfg:"nullValues"`
	// 默认按字面保留未加引号字段中的双引号，如 `Samsung 55" TV`；开启后视为格式错误
	StrictQuotes bool `cfg:"strictQuotes"`
}

// Load 读取整个分隔文本文件，首行为列名
//
// 每列独立推断类型：所有非空单元格都是整数时为 int，都是有限浮点数时为 float，否则为 text。
// 文本保持原样，包括只有空白字符的单元格。
func Load(path string, options *LoadOptions) (*Dataset, error) {
	if options == nil {
		options = &LoadOptions{}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(ErrDatasetNotFound, path)
		}
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	ds, err := Read(f, options)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	ds.Path = path
	return ds, nil
}

// Read 从 r 读取数据集，会跳过 UTF-8/UTF-16 BOM
func Read(r io.Reader, options *LoadOptions) (*Dataset, error) {
	if options == nil {
		options = &LoadOptions{}
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.LazyQuotes = !options.StrictQuotes
	if options.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(options.Delimiter)
		if size != len(options.Delimiter) {
			return nil, &ParseError{Err: fmt.Errorf("delimiter must be a single character, got %q", options.Delimiter)}
		}
		reader.Comma = d
	}
	if options.Comment != "" {
		c, _ := utf8.DecodeRuneInString(options.Comment)
		reader.Comment = c
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: fmt.Errorf("missing header row")}
	}
	if err != nil {
		return nil, toParseError(err)
	}
	columns := append([]string(nil), header...)
	index, err := buildIndex(columns)
	if err != nil {
		return nil, &ParseError{Line: 1, Err: err}
	}

	raw := make([][]string, len(columns))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}
		for j, cell := range record {
			raw[j] = append(raw[j], cell)
		}
	}

	nullValues := options.NullValues
	if len(nullValues) == 0 {
		nullValues = DefaultNullValues
	}
	nulls := make(map[string]struct{}, len(nullValues))
	for _, v := range nullValues {
		nulls[v] = struct{}{}
	}

	ds := &Dataset{
		names: columns,
		index: index,
		cols:  make([][]Value, len(columns)),
	}
	for j := range columns {
		ds.cols[j] = parseColumn(raw[j], nulls)
	}
	if len(columns) > 0 {
		ds.rows = len(raw[0])
	}
	return ds, nil
}

func toParseError(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Line: ce.Line, Err: ce.Err}
	}
	return &ParseError{Err: err}
}

// parseColumn 推断列类型并转换单元格
func parseColumn(cells []string, nulls map[string]struct{}) []Value {
	isInt, isFloat := true, true
	for _, cell := range cells {
		if _, ok := nulls[cell]; ok {
			continue
		}
		if isInt {
			if _, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
				isInt = false
			}
		}
		if !isInt {
			if _, ok := parseFloat(cell); !ok {
				isFloat = false
				break
			}
		}
	}

	values := make([]Value, len(cells))
	for i, cell := range cells {
		if _, ok := nulls[cell]; ok {
			values[i] = Null()
			continue
		}
		switch {
		case isInt:
			n, _ := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			values[i] = Int(n)
		case isFloat:
			f, _ := parseFloat(cell)
			values[i] = Float(f)
		default:
			values[i] = Text(cell)
		}
	}
	return values
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
