// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package env_test

import (
	"testing"

	"github.com/deep-rent/sshpki/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TString struct {
	V string
}

type TBool struct {
	V bool
}

type TInt struct {
	V int
}

type TUint struct {
	V uint
}

type TFloat64 struct {
	V float64
}

type TDefault struct {
	V string `env:",default:foo"`
}

type TRequired struct {
	V string `env:",required"`
}

type TRequiredWithDefault struct {
	V int `env:",required,default:42"`
}

type TIgnored struct {
	V string `env:"-"`
}

type TUnexported struct {
	v string
}

type TCustomName struct {
	Foo string `env:"BAR"`
}

type TSnakeCase struct {
	FooBar string
}

type TUnknownTag struct {
	V string `env:",foo:bar"`
}

type TTrimOptions struct {
	V string `env:", default:foo"`
}

func TestUnmarshal(t *testing.T) {
	type test struct {
		name    string
		vars    map[string]string
		in      any
		want    any
		wantErr bool
	}

	tests := []test{
		{
			name: "string",
			vars: map[string]string{"V": "foo"},
			in:   &TString{},
			want: &TString{"foo"},
		},
		{
			name: "bool",
			vars: map[string]string{"V": "true"},
			in:   &TBool{},
			want: &TBool{true},
		},
		{
			name: "int",
			vars: map[string]string{"V": "42"},
			in:   &TInt{},
			want: &TInt{42},
		},
		{
			name: "uint",
			vars: map[string]string{"V": "42"},
			in:   &TUint{},
			want: &TUint{42},
		},
		{
			name: "float64",
			vars: map[string]string{"V": "3.14"},
			in:   &TFloat64{},
			want: &TFloat64{3.14},
		},
		{
			name: "default",
			vars: map[string]string{},
			in:   &TDefault{},
			want: &TDefault{"foo"},
		},
		{
			name: "explicitly empty string uses default",
			vars: map[string]string{"V": ""},
			in:   &TDefault{},
			want: &TDefault{"foo"},
		},
		{
			name: "required",
			vars: map[string]string{"V": "foo"},
			in:   &TRequired{},
			want: &TRequired{"foo"},
		},
		{
			name:    "required error",
			vars:    map[string]string{},
			in:      &TRequired{},
			wantErr: true,
		},
		{
			name: "required with default",
			vars: map[string]string{},
			in:   &TRequiredWithDefault{},
			want: &TRequiredWithDefault{42},
		},
		{
			name: "required field with empty value",
			vars: map[string]string{"V": ""},
			in:   &TRequired{},
			want: &TRequired{""},
		},
		{
			name: "ignored",
			vars: map[string]string{"V": "foo"},
			in:   &TIgnored{},
			want: &TIgnored{},
		},
		{
			name: "unexported",
			vars: map[string]string{"v": "foo"},
			in:   &TUnexported{},
			want: &TUnexported{},
		},
		{
			name: "custom name",
			vars: map[string]string{"BAR": "foo"},
			in:   &TCustomName{},
			want: &TCustomName{"foo"},
		},
		{
			name: "snake case",
			vars: map[string]string{"FOO_BAR": "baz"},
			in:   &TSnakeCase{},
			want: &TSnakeCase{"baz"},
		},
		{
			name: "not set keeps original value",
			vars: map[string]string{},
			in:   &TString{"foo"},
			want: &TString{"foo"},
		},
		{
			name: "trim option keys",
			vars: map[string]string{},
			in:   &TTrimOptions{},
			want: &TTrimOptions{"foo"},
		},
		{
			name:    "parse error int",
			vars:    map[string]string{"V": "foo"},
			in:      &TInt{},
			wantErr: true,
		},
		{
			name:    "parse error bool",
			vars:    map[string]string{"V": "foo"},
			in:      &TBool{},
			wantErr: true,
		},
		{
			name:    "unknown tag option",
			vars:    map[string]string{},
			in:      &TUnknownTag{},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := []env.Option{env.WithLookup(func(k string) (string, bool) {
				v, ok := tc.vars[k]
				return v, ok
			})}
			err := env.Unmarshal(tc.in, opts...)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, tc.in)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		err := env.Unmarshal(nil)
		require.Error(t, err)
	})

	t.Run("not a pointer", func(t *testing.T) {
		var s struct{}
		err := env.Unmarshal(s)
		require.Error(t, err)
	})

	t.Run("not a pointer to a struct", func(t *testing.T) {
		var i int
		err := env.Unmarshal(&i)
		require.Error(t, err)
	})
}

type BenchConfig struct {
	LogLevel string `env:",default:info"`
	FIPSMode bool   `env:",default:false"`
}

func BenchmarkUnmarshal(b *testing.B) {
	mockEnv := map[string]string{
		"LOG_LEVEL": "debug",
		"FIPS_MODE": "true",
	}

	opts := []env.Option{
		env.WithLookup(func(k string) (string, bool) {
			v, ok := mockEnv[k]
			return v, ok
		}),
	}

	for b.Loop() {
		var cfg BenchConfig
		if err := env.Unmarshal(&cfg, opts...); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
