package service

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"ebaystore/parser/internal/domain"
)

// LoadSeedIDs reads a newline-delimited file of item IDs or item URLs.
// Blank lines are ignored; unrecognized lines are skipped with a warning.
func LoadSeedIDs(path string) ([]domain.ItemID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}

	seen := make(map[domain.ItemID]struct{})
	var ids []domain.ItemID

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		id := domain.ItemIDFromURL(line)
		if id == "" && isItemID(line) {
			id = domain.ItemID(line)
		}
		if id == "" {
			log.Warnf("Skipping unrecognized seed line: %q", line)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, nil
}

func isItemID(s string) bool {
	if len(s) < 9 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
