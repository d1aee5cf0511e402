// SPDX-License-Identifier: MIT
package forge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/skaphos/lantern/internal/model"
)

// LoadListing reads a repository listing payload from path.
func LoadListing(path string) (*model.RemoteListing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var listing model.RemoteListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", path, err)
	}
	return &listing, nil
}

// SaveListing writes the listing to path as indented JSON.
func SaveListing(listing *model.RemoteListing, path string) error {
	if listing == nil {
		return errors.New("listing is nil")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
