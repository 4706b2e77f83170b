package util

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
)

// TypeError occurs when a value cannot be converted to JSON and then base 64
type TypeError struct {
	Value interface{}
	Err   error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("Value of type %T is not encodable: %s", e.Value, e.Err)
}

// Unwrap returns the underlying encoding error
func (e *TypeError) Unwrap() error { return e.Err }

// ToBase64 converts the given value into a JSON string and then encodes that to a base 64 string.
// A nil value gives an empty string. A value that cannot be encoded gives a *TypeError, unless
// returnEmptyInsteadOfError is set, in which case an empty string and no error is returned.
func ToBase64(data interface{}, returnEmptyInsteadOfError bool) (string, error) {
	if data == nil {
		return "", nil
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).Debugf("value of type %T is not encodable", data)
		if returnEmptyInsteadOfError {
			return "", nil
		}
		return "", &TypeError{Value: data, Err: err}
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// ToBase64FromUTF8 encodes the given utf-8 string to base 64
func ToBase64FromUTF8(utf8 string) string {
	return base64.StdEncoding.EncodeToString([]byte(utf8))
}

// FromBase64ToUTF8 decodes the given base 64 string to a utf-8 string
func FromBase64ToUTF8(b64 string) (string, error) {
	bytes, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", &TypeError{Value: b64, Err: err}
	}
	return string(bytes), nil
}
