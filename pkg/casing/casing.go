// Copyright 2026 fanjia1024
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

// Package casing 在 library case（sessionDate）与 wire case（session_date）之间转换 JSON 键名。
// 只改键不改值；JSON 值是有限树，递归无需环检测。
package casing

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
)

// WireKey sessionDate -> session_date；首字母大写只转小写，不加前导下划线
func WireKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LibraryKey session_date -> sessionDate；下划线后不是字母时原样保留
func LibraryKey(key string) string {
	runes := []rune(key)
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToWire 递归转换对象键为 wire case；数组逐元素处理，标量与 nil 原样返回
func ToWire(v any) any {
	return convert(v, WireKey)
}

// ToLibrary ToWire 的逆变换
func ToLibrary(v any) any {
	return convert(v, LibraryKey)
}

func convert(v any, key func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[key(k)] = convert(val, key)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = convert(val, key)
		}
		return out
	default:
		return v
	}
}

// Decode 解析任意 JSON 为通用值；数字保留为 json.Number 以免整数精度丢失
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Marshal 结构体（library case 的 json tag）-> wire case JSON
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	generic, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ToWire(generic))
}

// Unmarshal wire case JSON -> 结构体（library case 的 json tag）
func Unmarshal(data []byte, v any) error {
	generic, err := Decode(data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(ToLibrary(generic))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
