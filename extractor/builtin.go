package extractor

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Bytes passes the raw record value through unchanged.
func Bytes() Extractor[[]byte] {
	return Func[[]byte](
		func(raw []byte) ([]byte, error) {
			out := make([]byte, len(raw))
			copy(out, raw)
			return out, nil
		},
	)
}

// String interprets the record value as a UTF-8 string.
func String() Extractor[string] {
	return Func[string](
		func(raw []byte) (string, error) {
			return string(raw), nil
		},
	)
}

// JSON unmarshals the record value as JSON into T.
func JSON[T any]() Extractor[T] {
	return Func[T](
		func(raw []byte) (T, error) {
			var result T
			if err := json.Unmarshal(raw, &result); err != nil {
				var zero T
				return zero, NewError(err)
			}
			return result, nil
		},
	)
}

// Protobuf unmarshals the record value as a protobuf message of type T.
func Protobuf[T proto.Message]() Extractor[T] {
	return Func[T](
		func(raw []byte) (T, error) {
			var zero T
			// zero is a typed nil pointer; ProtoReflect().New() yields a
			// fresh message of the same concrete type.
			msg := zero.ProtoReflect().New().Interface().(T)
			if err := proto.Unmarshal(raw, msg); err != nil {
				return zero, NewError(err)
			}
			return msg, nil
		},
	)
}
