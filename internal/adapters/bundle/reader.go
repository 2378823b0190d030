package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/geowork/roadpack/internal/core/domain"
)

// Reader decodes compressed bundle files.
type Reader struct{}

// Read decompresses and fully decodes the bundle at path. Intended for
// core bundles and tests; use EachSurface/EachWay for heavy arrays.
func (Reader) Read(path string) (*domain.BundleDocument, error) {
	var doc domain.BundleDocument
	err := withDecoder(path, func(dec *json.Decoder) error {
		return dec.Decode(&doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadCore decodes the envelope and core category arrays of the bundle at
// path. Heavy arrays are skipped token by token, so a single-mode bundle
// carrying millions of road segments is never materialized; only their
// presence is recorded.
func (Reader) ReadCore(path string) (*domain.CoreDocument, error) {
	var doc domain.CoreDocument
	err := eachField(path, func(field string, dec *json.Decoder) error {
		switch field {
		case "version":
			return dec.Decode(&doc.Version)
		case "region":
			return dec.Decode(&doc.Region)
		case string(domain.CategoryTrafficCalming):
			return dec.Decode(&doc.TrafficCalming)
		case string(domain.CategoryRoundabout):
			return dec.Decode(&doc.Roundabouts)
		case string(domain.CategoryRoadSurface):
			doc.HasSurfaces = true
			return skipValue(dec)
		case string(domain.CategoryRoadWay):
			doc.HasWays = true
			return skipValue(dec)
		default:
			return skipValue(dec)
		}
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// EachSurface streams the roadSurfaces array of the bundle at path through
// fn, one record at a time. A bundle without the array yields no calls.
func (r Reader) EachSurface(path string, fn func(domain.RoadSurfaceRecord) error) error {
	return eachElement(path, string(domain.CategoryRoadSurface), func(dec *json.Decoder) error {
		var rec domain.RoadSurfaceRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		return fn(rec)
	})
}

// EachWay streams the roadWays array of the bundle at path through fn.
func (r Reader) EachWay(path string, fn func(domain.RoadWayRecord) error) error {
	return eachElement(path, string(domain.CategoryRoadWay), func(dec *json.Decoder) error {
		var rec domain.RoadWayRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		return fn(rec)
	})
}

func withDecoder(path string, fn func(*json.Decoder) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress bundle %s: %w", path, err)
	}
	defer gz.Close()

	if err := fn(json.NewDecoder(gz)); err != nil {
		return fmt.Errorf("decode bundle %s: %w", path, err)
	}
	return nil
}

// eachField walks the top-level object of a bundle document, handing each
// field's value decoder to fn.
func eachField(path string, fn func(field string, dec *json.Decoder) error) error {
	return withDecoder(path, func(dec *json.Decoder) error {
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			field, ok := tok.(string)
			if !ok {
				return fmt.Errorf("unexpected token %v in envelope", tok)
			}
			if err := fn(field, dec); err != nil {
				return err
			}
		}
		return nil
	})
}

// eachElement walks the named top-level array, handing each element's
// decoder to fn without materializing the array.
func eachElement(path, field string, fn func(dec *json.Decoder) error) error {
	return eachField(path, func(name string, dec *json.Decoder) error {
		if name != field {
			return skipValue(dec)
		}
		if err := expectDelim(dec, '['); err != nil {
			return err
		}
		for dec.More() {
			if err := fn(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing ]
		return err
	})
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// skipValue consumes one JSON value from the decoder without keeping it.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("unexpected end of document")
			}
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}
