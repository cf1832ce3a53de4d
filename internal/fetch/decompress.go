package fetch

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
)

// Payload is one decompressed JSON document ready for parsing. Source is the
// provenance identifier: the URL itself, or URL#member for archive members.
type Payload struct {
	Source string
	Data   []byte
}

// Expand turns a downloaded body into one or more JSON payloads based on the
// source identifier's suffix: raw JSON passes through, .gz is gunzipped, and
// .zip yields one payload per JSON member (gunzipping .json.gz members).
func Expand(source string, body []byte) ([]Payload, error) {
	switch {
	case hasSuffix(source, ".gz") && !hasSuffix(source, ".json.gz.zip"):
		data, err := gunzip(body)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", source, err)
		}
		return []Payload{{Source: source, Data: data}}, nil

	case hasSuffix(source, ".zip"):
		return expandZip(source, body)

	default:
		return []Payload{{Source: source, Data: body}}, nil
	}
}

func expandZip(source string, body []byte) ([]Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", source, err)
	}

	var payloads []Payload
	for _, member := range zr.File {
		name := member.Name
		if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".json.gz") {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip member %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read zip member %s: %w", name, err)
		}
		if strings.HasSuffix(name, ".gz") {
			if data, err = gunzip(data); err != nil {
				return nil, fmt.Errorf("decompress zip member %s: %w", name, err)
			}
		}
		payloads = append(payloads, Payload{Source: source + "#" + name, Data: data})
	}

	if len(payloads) == 0 {
		return nil, fmt.Errorf("no JSON members in %s", source)
	}
	return payloads, nil
}

func gunzip(body []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

// hasSuffix checks the URL path suffix, ignoring any query string.
func hasSuffix(source, suffix string) bool {
	path, _, _ := strings.Cut(source, "?")
	return strings.HasSuffix(path, suffix)
}
