// Package commands implements the submux-log CLI commands.
package commands

import (
	"fmt"
	"strings"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
)

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "entry":
		return log.LayerEntry, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or entry)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "local":
		return log.DirectionLocal, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or local)", s)
	}
}

var categories = []log.Category{
	log.CategoryFrame,
	log.CategoryCommand,
	log.CategoryStatus,
	log.CategoryMessage,
	log.CategoryState,
	log.CategoryError,
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	for _, c := range categories {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid category: %s (must be frame, command, status, message, state, or error)", s)
}

// ParseKindFlag parses a command kind such as "psubscribe" (case-insensitive).
func ParseKindFlag(s string) (pubsub.Kind, error) {
	for k := pubsub.Subscribe; k <= pubsub.PUnsubscribe; k++ {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid kind: %s", s)
}
