package model

import "strings"

// Typed is any model type with a TypeName accessor.
type Typed interface {
	TypeName() string
}

// BaseType strips faction variants ("fact.england" -> "fact") and lowercases.
func BaseType(t string) string {
	base := strings.ToLower(t)
	if idx := strings.IndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	return base
}

// CountByType tallies items by base type.
func CountByType[T Typed](items []T) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[BaseType(item.TypeName())]++
	}
	return counts
}
