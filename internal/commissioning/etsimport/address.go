package etsimport

import (
	"fmt"
	"strconv"
	"strings"
)

// unknownAddress is rendered when no address part is present.
const unknownAddress = "?"

// Group address limits.
const (
	maxGroupAddress = 0xFFFF
	maxMainGroup    = 31
	maxMiddleGroup  = 7
	maxSubGroup     = 255
	maxTwoLevelSub  = 2047
)

// SubtypeNumber renders a datapoint subtype number: the parent number, a
// dot, and the subtype zero-padded to three digits ("1.001", "12.042").
func SubtypeNumber(parent string, subtype int) string {
	return fmt.Sprintf("%s.%03d", parent, subtype)
}

// PhysicalAddress renders a KNX individual address from whichever of its
// parts are present, dot-joined in order. With no parts it returns "?".
//
// Examples:
//
//	(1, 2, 3)       -> "1.2.3"
//	(1, 2, nil)     -> "1.2"
//	(nil, nil, 3)   -> "3"
//	(nil, nil, nil) -> "?"
func PhysicalAddress(area, line, device *int) string {
	parts := make([]string, 0, 3)
	for _, p := range []*int{area, line, device} {
		if p != nil {
			parts = append(parts, strconv.Itoa(*p))
		}
	}
	if len(parts) == 0 {
		return unknownAddress
	}
	return strings.Join(parts, ".")
}

// FormatGroupAddress renders a raw group address in the given style.
//
//	ThreeLevel: main/middle/sub  (5/3/8 bits)
//	TwoLevel:   main/sub         (5/11 bits)
//	Free:       the raw integer
//
// A nil address renders as "?". An unknown style renders as Free.
func FormatGroupAddress(style GroupAddressStyle, raw *int) string {
	if raw == nil {
		return unknownAddress
	}
	a := *raw
	switch style {
	case StyleThreeLevel:
		return fmt.Sprintf("%d/%d/%d", a>>11, (a>>8)&0x7, a&0xFF)
	case StyleTwoLevel:
		return fmt.Sprintf("%d/%d", a>>11, a&0x7FF)
	default:
		return strconv.Itoa(a)
	}
}

// ParseGroupAddress is the inverse of FormatGroupAddress.
//
// Returns:
//   - int: The raw 16-bit address
//   - error: If s does not match the style or a part is out of range
func ParseGroupAddress(style GroupAddressStyle, s string) (int, error) {
	parts := strings.Split(s, "/")

	var limits []int
	switch style {
	case StyleThreeLevel:
		limits = []int{maxMainGroup, maxMiddleGroup, maxSubGroup}
	case StyleTwoLevel:
		limits = []int{maxMainGroup, maxTwoLevelSub}
	case StyleFree:
		limits = []int{maxGroupAddress}
	default:
		return 0, fmt.Errorf("unknown group address style %q", style)
	}

	if len(parts) != len(limits) {
		return 0, fmt.Errorf("group address %q: want %d parts for %s", s, len(limits), style)
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("group address %q: part %q out of range 0-%d", s, p, limits[i])
		}
		values[i] = n
	}

	switch style {
	case StyleThreeLevel:
		return values[0]<<11 | values[1]<<8 | values[2], nil
	case StyleTwoLevel:
		return values[0]<<11 | values[1], nil
	default:
		return values[0], nil
	}
}
