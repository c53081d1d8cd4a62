/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/tablet.schema.json
var tabletSchemaJSON []byte

var (
	tabletSchemaOnce sync.Once
	tabletSchema     *gojsonschema.Schema
	tabletSchemaErr  error
)

// TabletSchema returns the raw JSON schema of the persisted configuration.
func TabletSchema() []byte { return append([]byte(nil), tabletSchemaJSON...) }

// ValidateDocument checks a serialized TabletConfiguration against the schema.
func ValidateDocument(doc []byte) error {
	tabletSchemaOnce.Do(func() {
		tabletSchema, tabletSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tabletSchemaJSON))
	})
	if tabletSchemaErr != nil {
		return fmt.Errorf("load schema: %w", tabletSchemaErr)
	}
	res, err := tabletSchema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("document does not match schema: %s", strings.Join(msgs, "; "))
}
