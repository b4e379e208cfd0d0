// Package codec holds the encodings manifests and page payloads use.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

var (
	// JSONStrict rejects unknown fields and trailing content.
	JSONStrict Codec = jsonStrict{}
	TOML       Codec = tomlCodec{}
)

// ForExt picks a codec by file extension. Anything but .json is TOML.
func ForExt(ext string) Codec {
	if strings.EqualFold(ext, ".json") {
		return JSONStrict
	}
	return TOML
}

type jsonStrict struct{}

func (jsonStrict) Marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (jsonStrict) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return fmt.Errorf("json trailing content")
	}
	return nil
}

func (jsonStrict) ContentType() string { return "application/json" }

type tomlCodec struct{}

func (tomlCodec) Marshal(v any) ([]byte, error) { return toml.Marshal(v) }

func (tomlCodec) Unmarshal(data []byte, v any) error {
	if err := toml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("toml decode: %w", err)
	}
	return nil
}

func (tomlCodec) ContentType() string { return "application/toml" }
