// FILE: logpulse/src/internal/core/value.go
package core

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

// stackTracer is implemented by errors created through github.com/pkg/errors
type stackTracer interface {
	StackTrace() errors.StackTrace
}

var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Flatten renders values into a single message, joined by a space
func Flatten(values ...any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, FormatValue(v))
	}
	return strings.Join(parts, " ")
}

// FormatValue renders a single value. Errors carry their stack trace when one is
// attached, composite values are serialized as JSON with a spew dump fallback.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case error:
		return formatError(val)
	case fmt.Stringer:
		return val.String()
	case []byte:
		return string(val)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, complex64, complex128:
		return fmt.Sprint(val)
	}

	return formatComposite(v)
}

func formatError(err error) string {
	var st stackTracer
	if !stderrors.As(err, &st) {
		return err.Error()
	}

	stack := strings.TrimLeft(fmt.Sprintf("%+v", st.StackTrace()), "\n")
	return err.Error() + "\n" + stack
}

func formatComposite(v any) string {
	if !hasUnexported(v) {
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
	}

	var b bytes.Buffer
	dumper.Fdump(&b, v)
	return string(bytes.TrimSpace(b.Bytes()))
}

// hasUnexported reports a struct, or pointer to one, with any field JSON would skip
func hasUnexported(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return false
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if !rt.Field(i).IsExported() {
			return true
		}
	}
	return false
}
