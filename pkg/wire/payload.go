package wire

import "fmt"

// Codec converts message payloads for one channel.
type Codec interface {
	// Name identifies the codec.
	Name() string

	// Encode converts an application value to payload bytes.
	Encode(v any) ([]byte, error)

	// Decode converts payload bytes to an application value.
	Decode(data []byte) (any, error)
}

// RawCodec passes payloads through as []byte.
type RawCodec struct{}

func (RawCodec) Name() string { return "raw" }

func (RawCodec) Encode(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("raw codec cannot encode %T", v)
	}
}

func (RawCodec) Decode(data []byte) (any, error) { return data, nil }

// StringCodec treats payloads as UTF-8 text.
type StringCodec struct{}

func (StringCodec) Name() string { return "string" }

func (StringCodec) Encode(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	case fmt.Stringer:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("string codec cannot encode %T", v)
	}
}

func (StringCodec) Decode(data []byte) (any, error) { return string(data), nil }

// CBORCodec encodes payloads as CBOR values.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(v any) ([]byte, error) { return Marshal(v) }

func (CBORCodec) Decode(data []byte) (any, error) {
	var v any
	if err := Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// CodecByName returns the built-in codec with the given name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "raw", "":
		return RawCodec{}, nil
	case "string":
		return StringCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Codec = RawCodec{}
	_ Codec = StringCodec{}
	_ Codec = CBORCodec{}
)
