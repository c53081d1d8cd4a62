/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package contentapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenUsable reports whether token is a well-formed JWT that has not
// expired at now. Tokens without an exp claim are accepted. The signature is
// not checked; that is the API's concern.
func TokenUsable(token string, now time.Time) bool {
	exp, ok, err := expClaim(token)
	if err != nil {
		return false
	}
	return !ok || now.Before(exp)
}

func expClaim(token string) (time.Time, bool, error) {
	claims := jwt.MapClaims{}
	p := jwt.Parser{UseJSONNumber: true}
	if _, _, err := p.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, err
	}
	raw, ok := claims["exp"]
	if !ok {
		return time.Time{}, false, nil
	}
	var sec float64
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false, err
		}
		sec = f
	case float64:
		sec = v
	default:
		return time.Time{}, false, fmt.Errorf("%w: exp is %T", errMalformedToken, raw)
	}
	return time.Unix(int64(sec), 0), true, nil
}

var errMalformedToken = errors.New("malformed token")

// MediaURL turns a stored public path into an absolute URL below uploadBase.
func MediaURL(uploadBase, publicPath string) string {
	if publicPath == "" {
		return ""
	}
	if strings.HasPrefix(publicPath, "http://") || strings.HasPrefix(publicPath, "https://") {
		return publicPath
	}
	p := strings.TrimPrefix(publicPath, "/uploads/media/")
	p = strings.TrimLeft(p, "/")
	return strings.TrimRight(uploadBase, "/") + "/" + p
}
