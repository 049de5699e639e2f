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

package transport

import (
	"fmt"
	"strings"

	"memu-sdk/pkg/casing"
	sdkerrors "memu-sdk/pkg/errors"
)

// Classify 把非 2xx 响应映射为 SDK 错误；422 的错误体解码为 library case 放入 Detail
func Classify(status int, body []byte) *sdkerrors.Error {
	var detail any
	if status == 422 {
		if v, err := casing.Decode(body); err == nil {
			detail = casing.ToLibrary(v)
		} else if s := strings.TrimSpace(string(body)); s != "" {
			detail = s
		}
	}
	return sdkerrors.FromStatus(status, body, detail)
}

func sprintf(format string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
