// Package env provides functionality for unmarshaling environment variables
// into a flat Go struct.
//
// All exported fields in a struct are mapped to environment variables. The
// variable name is derived by converting the field's name to uppercase
// SNAKE_CASE (e.g., a field named LogLevel maps to LOG_LEVEL). This behavior
// can be customized or disabled on a per-field basis using struct tags.
//
// # Usage
//
// Define a struct to hold your configuration. Only exported fields will be
// considered.
//
//	type Config struct {
//		LogLevel  string `env:",default:info"`
//		FIPSMode  bool   `env:",default:false"`
//		Retries   int    `env:",required"`
//		Internal  int    `env:"-"`
//	}
//
//	var cfg Config
//	if err := env.Unmarshal(&cfg); err != nil {
//		log.Fatalf("failed to unmarshal config: %v", err)
//	}
//
// # Options
//
// The behavior of the unmarshaler is controlled by the env struct field tag,
// a comma-separated string of options.
//
// The first value is the name of the environment variable. If it is omitted,
// the field's name is used as the base for the variable name.
//
//	DatabaseURL string `env:"DATABASE_URL"`
//
// Option "default"
//
// Sets a default value to be used if the environment variable is not set or
// is set to the empty string.
//
//	Port int `env:",default:8080"`
//
// Option "required"
//
// Marks the variable as required. Unmarshal will return an error if the
// variable is not set and no default is provided.
//
//	APIKey string `env:",required"`
package env

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// Lookup is a function that retrieves the value of an environment variable.
// It follows the signature of os.LookupEnv, returning the value and a boolean
// indicating whether the variable was present. This type allows for custom
// lookup mechanisms, which is especially useful for testing.
type Lookup func(key string) (string, bool)

// Option is a function that configures the behavior of Unmarshal. It follows
// the functional options pattern.
type Option func(*config)

// WithLookup returns an Option that sets a custom lookup function for
// retrieving environment variable values. If not customized, os.LookupEnv
// will be used by default.
func WithLookup(lookup Lookup) Option {
	return func(o *config) {
		if lookup != nil {
			o.Lookup = lookup
		}
	}
}

// Unmarshal populates the fields of a struct with values from environment
// variables. The given value v must be a non-nil pointer to a flat struct of
// string, bool, integer, or float fields.
//
// A field's environment variable name is derived from its name, converted to
// uppercase SNAKE_CASE. To ignore a field, tag it with `env:"-"`. Unexported
// fields are always excluded. If a variable is not set, the field remains
// unchanged unless a default value is specified in the struct tag, or it is
// marked as required. A variable set to the empty string also takes the
// default value, if one is specified.
func Unmarshal(v any, opts ...Option) error {
	if err := unmarshal(v, opts...); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

type flags struct {
	Name     string
	Default  string
	Required bool
}

type config struct {
	Lookup Lookup
}

func unmarshal(v any, opts ...Option) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return errors.New("expected a non-nil pointer to a struct")
	}
	val := ptr.Elem()
	if kind := val.Kind(); kind != reflect.Struct {
		return fmt.Errorf("expected a pointer to a struct, but got pointer to %v", kind)
	}
	cfg := config{Lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&cfg)
	}
	return process(val, cfg.Lookup)
}

// process walks the struct's fields, binding each one to an environment
// variable in turn.
func process(rv reflect.Value, lookup Lookup) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		ft := rt.Field(i)
		fv := rv.Field(i)

		if !ft.IsExported() || !fv.CanSet() {
			continue
		}

		tag := ft.Tag.Get("env")
		if tag == "-" {
			continue
		}
		opts, err := parse(tag)
		if err != nil {
			return fmt.Errorf("failed to parse tag for field %q: %w", ft.Name, err)
		}

		key := opts.Name
		if key == "" {
			key = toSnake(ft.Name)
		}

		val, ok := lookup(key)
		if !ok || (val == "" && opts.Default != "") {
			if opts.Default != "" {
				val = opts.Default
			} else if opts.Required {
				return fmt.Errorf("required variable %q is not set", key)
			} else {
				continue
			}
		}

		if err := setKind(fv, val); err != nil {
			return fmt.Errorf("error setting field %q from variable %q: %w", ft.Name, key, err)
		}
	}
	return nil
}

// setKind sets a primitive value based on its kind.
func setKind(rv reflect.Value, v string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(v, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(v, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(v, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		rv.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %v", rv.Type())
	}
	return nil
}

// parse parses the `env` tag string.
func parse(s string) (opts flags, err error) {
	name, rest, _ := strings.Cut(s, ",")
	opts.Name = name

	for rest != "" {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			break
		}

		part, tail, _ := strings.Cut(rest, ",")
		rest = tail

		key, val, found := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if !found {
			switch key {
			case "required":
				opts.Required = true
			case "":
				// An empty part can result from trailing or double commas. Ignore it.
			default:
				return opts, fmt.Errorf("unknown tag option: %q", key)
			}
			continue
		}
		switch key {
		case "default":
			opts.Default = val
		default:
			return opts, fmt.Errorf("unknown tag option: %q", key)
		}
	}
	return opts, nil
}

// toSnake converts a camelCase string to an uppercase SNAKE_CASE string.
func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 5)
	runes := []rune(s)
	for i, r := range runes {
		// Insert an underscore before a capital letter or digit.
		if i != 0 {
			prev := runes[i-1]
			// Case 1: Lowercase to uppercase/digit transition (e.g, "myVar").
			if unicode.IsLower(prev) && unicode.IsUpper(r) || unicode.IsDigit(r) {
				b.WriteRune('_')
			}
			// Case 2: Acronym to new word transition (e.g., "MYVar").
			if unicode.IsUpper(prev) && unicode.IsUpper(r) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
