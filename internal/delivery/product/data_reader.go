package product

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ringbrew/newaim/ecommerce/internal/domain/product"
)

type DataReader struct {
	Path string
}

func NewDataReader(path string) *DataReader {
	return &DataReader{
		Path: path,
	}
}

// Read loads every product row of every .csv file inside the zip archive.
// Entries are streamed from the archive instead of being extracted to disk.
func (dr *DataReader) Read() ([]*product.Product, error) {
	reader, err := zip.OpenReader(dr.Path)
	if err != nil {
		return nil, fmt.Errorf("open seed archive: %w", err)
	}
	defer reader.Close()

	result := make([]*product.Product, 0, 1024)
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		ps, err := dr.readFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		result = append(result, ps...)
	}

	if len(result) == 0 {
		return nil, errors.New("seed archive contains no products")
	}
	return result, nil
}

func (dr *DataReader) readFile(f *zip.File) ([]*product.Product, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return ParseCSV(rc)
}

// ParseCSV reads products from r. The header row decides the column order:
//
//	name,category,categories,tags,description,image,new_price,old_price,available
//
// Unknown columns are ignored, list columns are split on | or ; and name is mandatory.
func ParseCSV(r io.Reader) ([]*product.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, errors.New("missing name column")
	}

	result := make([]*product.Product, 0, 128)
	line := 1
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		line++

		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		p := &product.Product{
			Name:        get("name"),
			Category:    strings.ToLower(get("category")),
			Categories:  splitList(get("categories")),
			Tags:        splitList(get("tags")),
			Description: get("description"),
			Image:       get("image"),
			Available:   true,
		}
		if p.Name == "" {
			continue
		}

		if p.NewPrice, err = parsePrice(get("new_price")); err != nil {
			return nil, fmt.Errorf("line %d new_price: %w", line, err)
		}
		if p.OldPrice, err = parsePrice(get("old_price")); err != nil {
			return nil, fmt.Errorf("line %d old_price: %w", line, err)
		}
		if v := get("available"); v != "" {
			if p.Available, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("line %d available: %w", line, err)
			}
		}

		result = append(result, p)
	}

	return result, nil
}

func splitList(s string) []string {
	result := make([]string, 0)
	for _, v := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ';' }) {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

func parsePrice(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
}
