package datatype

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Registered adapters.
var (
	String             = register(stringAdapter{name: "string"})
	Token              = register(stringAdapter{name: "token", pattern: tokenRE})
	UUID               = register(stringAdapter{name: "uuid", pattern: uuidRE})
	URI                = register(uriAdapter{name: "uri", absolute: true})
	URIReference       = register(uriAdapter{name: "uri-reference"})
	Integer            = register(integerAdapter{name: "integer", min: minUnbounded})
	NonNegativeInteger = register(integerAdapter{name: "non-negative-integer", min: 0})
	PositiveInteger    = register(integerAdapter{name: "positive-integer", min: 1})
	Decimal            = register(decimalAdapter{})
	Boolean            = register(booleanAdapter{})
)

var (
	tokenRE   = regexp.MustCompile(`^(\p{L}|_)(\p{L}|\p{N}|[.\-_])*$`)
	uuidRE    = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)
	decimalRE = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

type stringAdapter struct {
	name    string
	pattern *regexp.Regexp
}

func (a stringAdapter) Name() string                { return a.name }
func (a stringAdapter) JSONKind() JSONKind          { return JSONString }
func (a stringAdapter) DefaultJSONValueKey() string { return "STRVALUE" }

func (a stringAdapter) Parse(text string) (any, error) {
	if a.pattern != nil && !a.pattern.MatchString(text) {
		return nil, formatErr(a, text, nil)
	}
	return text, nil
}

func (a stringAdapter) Format(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", typeErr(a, v)
}

type uriAdapter struct {
	name     string
	absolute bool
}

func (a uriAdapter) Name() string                { return a.name }
func (a uriAdapter) JSONKind() JSONKind          { return JSONString }
func (a uriAdapter) DefaultJSONValueKey() string { return "STRVALUE" }

func (a uriAdapter) Parse(text string) (any, error) {
	u, err := url.Parse(text)
	if err != nil {
		return nil, formatErr(a, text, err)
	}
	if a.absolute && u.Scheme == "" {
		return nil, formatErr(a, text, errors.New("missing scheme"))
	}
	return text, nil
}

func (a uriAdapter) Format(v any) (string, error) {
	switch u := v.(type) {
	case string:
		return u, nil
	case *url.URL:
		return u.String(), nil
	}
	return "", typeErr(a, v)
}

const minUnbounded = -1 << 63

// Integers are int64 values; text outside the int64 range parses to a
// *big.Int.
type integerAdapter struct {
	name string
	min  int64
}

func (a integerAdapter) Name() string                { return a.name }
func (a integerAdapter) JSONKind() JSONKind          { return JSONNumber }
func (a integerAdapter) DefaultJSONValueKey() string { return "INTVALUE" }

func (a integerAdapter) Parse(text string) (any, error) {
	digits := strings.TrimPrefix(text, "+")
	i, err := strconv.ParseInt(digits, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		b, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return nil, formatErr(a, text, err)
		}
		if b.Sign() < 0 && a.min > minUnbounded {
			return nil, formatErr(a, text, fmt.Errorf("must be >= %d", a.min))
		}
		return b, nil
	}
	if err != nil {
		return nil, formatErr(a, text, err)
	}
	if i < a.min {
		return nil, formatErr(a, text, fmt.Errorf("must be >= %d", a.min))
	}
	return i, nil
}

func (a integerAdapter) Format(v any) (string, error) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), nil
	case int:
		return strconv.Itoa(n), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	case *big.Int:
		return n.String(), nil
	}
	return "", typeErr(a, v)
}

// DecimalValue keeps the lexical form of a decimal so values round-trip
// without binary floating point loss.
type DecimalValue string

// Rat returns the exact rational value.
func (d DecimalValue) Rat() (*big.Rat, bool) { return new(big.Rat).SetString(string(d)) }

func (d DecimalValue) String() string { return string(d) }

type decimalAdapter struct{}

func (decimalAdapter) Name() string                { return "decimal" }
func (decimalAdapter) JSONKind() JSONKind          { return JSONNumber }
func (decimalAdapter) DefaultJSONValueKey() string { return "NUMVALUE" }

func (a decimalAdapter) Parse(text string) (any, error) {
	if !decimalRE.MatchString(text) {
		return nil, formatErr(a, text, nil)
	}
	return DecimalValue(text), nil
}

func (a decimalAdapter) Format(v any) (string, error) {
	switch d := v.(type) {
	case DecimalValue:
		return string(d), nil
	case string:
		if decimalRE.MatchString(d) {
			return d, nil
		}
		return "", formatErr(a, d, nil)
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(d, 10), nil
	case int:
		return strconv.Itoa(d), nil
	case *big.Rat:
		return d.FloatString(10), nil
	}
	return "", typeErr(a, v)
}

type booleanAdapter struct{}

func (booleanAdapter) Name() string                { return "boolean" }
func (booleanAdapter) JSONKind() JSONKind          { return JSONBoolean }
func (booleanAdapter) DefaultJSONValueKey() string { return "BOOLVALUE" }

func (a booleanAdapter) Parse(text string) (any, error) {
	switch text {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return nil, formatErr(a, text, nil)
}

func (a booleanAdapter) Format(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", typeErr(a, v)
	}
	return strconv.FormatBool(b), nil
}
