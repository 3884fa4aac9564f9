// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package strutils provides small string list helpers.
package strutils

import "strings"

// StrListContains looks for a string in a list of strings.
func StrListContains(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

// StrListContainsAll reports whether every needle is in the haystack.
func StrListContainsAll(haystack []string, needles ...string) bool {
	for _, n := range needles {
		if !StrListContains(haystack, n) {
			return false
		}
	}
	return true
}

// RemoveDuplicatesStable removes duplicate and empty elements from a slice of
// strings, preserving order (and case) of the original slice.
// In all cases, strings are compared after trimming whitespace
// If caseInsensitive, strings will be compared after ToLower()
func RemoveDuplicatesStable(items []string, caseInsensitive bool) []string {
	dupMap := make(map[string]bool, len(items))
	ret := make([]string, 0, len(items))

	for _, item := range items {
		itemTrim := strings.TrimSpace(item)
		if caseInsensitive {
			itemTrim = strings.ToLower(itemTrim)
		}
		if dupMap[itemTrim] || len(itemTrim) == 0 {
			continue
		}
		dupMap[itemTrim] = true
		ret = append(ret, item)
	}
	return ret
}
