package params

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Properties of Translate:
// booleans never carry a value token, optional values are all-or-nothing,
// required values are always a flag/value pair, and translation is idempotent.
func TestTranslateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("booleans emit only the flag when true", prop.ForAll(
		func(name string, b bool) bool {
			tokens, err := Translate(name, b, OptionalBool)
			if err != nil {
				return false
			}
			if b {
				return len(tokens) == 1 && tokens[0] == "--"+name
			}
			return len(tokens) == 0
		},
		gen.Identifier(), gen.Bool(),
	))

	properties.Property("absent optionals emit nothing", prop.ForAll(
		func(name string) bool {
			for _, typ := range []SemanticType{OptionalBool, OptionalString, OptionalInt} {
				tokens, err := Translate(name, nil, typ)
				if err != nil || len(tokens) != 0 {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
	))

	properties.Property("present optional strings emit a flag/value pair", prop.ForAll(
		func(name, value string) bool {
			tokens, err := Translate(name, value, OptionalString)
			return err == nil && reflect.DeepEqual(tokens, []string{"--" + name, value})
		},
		gen.Identifier(), gen.AnyString(),
	))

	properties.Property("integers render as plain base 10", prop.ForAll(
		func(name string, n int64) bool {
			tokens, err := Translate(name, n, OptionalInt)
			if err != nil || len(tokens) != 2 {
				return false
			}
			parsed, err := strconv.ParseInt(tokens[1], 10, 64)
			return err == nil && parsed == n && tokens[1] == strconv.FormatInt(n, 10)
		},
		gen.Identifier(), gen.Int64(),
	))

	properties.Property("required values always emit exactly two tokens", prop.ForAll(
		func(name, value string) bool {
			s, err := Translate(name, value, String)
			if err != nil || len(s) != 2 {
				return false
			}
			o, err := Translate(name, "/"+value, OutputDirectory)
			return err == nil && len(o) == 2
		},
		gen.Identifier(), gen.AlphaString(),
	))

	properties.Property("absent required values are errors", prop.ForAll(
		func(name string) bool {
			_, errS := Translate(name, nil, String)
			_, errO := Translate(name, nil, OutputDirectory)
			return errS != nil && errO != nil
		},
		gen.Identifier(),
	))

	properties.Property("translation is idempotent", prop.ForAll(
		func(name string, n int64, b bool, s string) bool {
			for _, c := range []struct {
				v   interface{}
				typ SemanticType
			}{{n, OptionalInt}, {b, OptionalBool}, {s, OptionalString}, {s, String}} {
				first, err1 := Translate(name, c.v, c.typ)
				second, err2 := Translate(name, c.v, c.typ)
				if err1 != nil || err2 != nil || !reflect.DeepEqual(first, second) {
					return false
				}
			}
			return true
		},
		gen.Identifier(), gen.Int64(), gen.Bool(), gen.AnyString(),
	))

	properties.TestingRun(t)
}
