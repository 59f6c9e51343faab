// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

package codecs

import (
	"encoding/json"
	"io"
	"os"
	"reflect"
	"slices"
)

// NewFormattedJSONEncoder returns a json encoder configured for
// pretty-printed output (human-readable)
func NewFormattedJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	return enc
}

// LoadObjectFromFile implements the common pattern for loading an instance
// of an object from a json file.
func LoadObjectFromFile(filename string, object interface{}) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	err = dec.Decode(object)
	return
}

// SaveObjectToFile implements the common pattern for saving an object to a file as json
func SaveObjectToFile(filename string, object interface{}, prettyFormat bool) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	var enc *json.Encoder
	if prettyFormat {
		enc = NewFormattedJSONEncoder(f)
	} else {
		enc = json.NewEncoder(f)
	}
	return enc.Encode(object)
}

// SaveNonDefaultValuesToFile saves a flat struct to a file as json, keeping only the
// top level fields whose value differs from defaultObject. Fields named in
// alwaysInclude are written regardless.
func SaveNonDefaultValuesToFile(filename string, object, defaultObject interface{}, alwaysInclude []string, prettyFormat bool) error {
	values, err := toValueMap(object)
	if err != nil {
		return err
	}
	defaults, err := toValueMap(defaultObject)
	if err != nil {
		return err
	}
	for name, value := range values {
		if slices.Contains(alwaysInclude, name) {
			continue
		}
		if def, has := defaults[name]; has && reflect.DeepEqual(def, value) {
			delete(values, name)
		}
	}
	return SaveObjectToFile(filename, values, prettyFormat)
}

func toValueMap(object interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	values := make(map[string]interface{})
	err = json.Unmarshal(data, &values)
	return values, err
}
