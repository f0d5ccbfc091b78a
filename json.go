// Copyright 2021 Google Inc. All Rights Reserved.
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

package anvil

import (
	"os"
	"strings"
)

const hexDigits = "0123456789abcdef"

// EncodeJSONString encodes a string in JSON format, without enclosing quotes.
func EncodeJSONString(in string) string {
	var out strings.Builder
	out.Grow(len(in) + len(in)/5)
	for i := 0; i < len(in); i++ {
		c := in[i]
		switch c {
		case '\b':
			out.WriteString("\\b")
		case '\f':
			out.WriteString("\\f")
		case '\n':
			out.WriteString("\\n")
		case '\r':
			out.WriteString("\\r")
		case '\t':
			out.WriteString("\\t")
		case '\\':
			out.WriteString("\\\\")
		case '"':
			out.WriteString("\\\"")
		default:
			if c < 0x20 {
				out.WriteString("\\u00")
				out.WriteByte(hexDigits[c>>4])
				out.WriteByte(hexDigits[c&0xf])
			} else {
				out.WriteByte(c)
			}
		}
	}
	return out.String()
}

// PrintJSONString prints a string in JSON format to stdout, without
// enclosing quotes.
func PrintJSONString(in string) {
	os.Stdout.WriteString(EncodeJSONString(in))
}
