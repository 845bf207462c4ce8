package services

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/tiles-dev/pfm-sim/internal/models"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// clampLimit bounds page sizes; the frontend occasionally asks for everything.
func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// decodeTagNames reads a JSON string array, returning nil for empty or
// malformed payloads.
func decodeTagNames(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil
	}
	return names
}

// transactionHasAnyTag reports whether the transaction carries at least one of
// the supplied tag names.
func transactionHasAnyTag(transaction models.Transaction, names []string) bool {
	tags := decodeTagNames(transaction.Tags)
	if len(tags) == 0 {
		return false
	}
	for _, tag := range tags {
		for _, name := range names {
			if strings.EqualFold(tag, name) {
				return true
			}
		}
	}
	return false
}

// normaliseTagNames trims, de-duplicates and drops empty tag names while
// preserving order.
func normaliseTagNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
