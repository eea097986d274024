package entity

import "golang.org/x/text/unicode/norm"

// CanonicalizeAttrs NFC-normalizes every string attribute value in place.
//
// Equal-looking strings with different Unicode compositions would otherwise
// persist as distinct values and defeat equality predicates. Normalization
// happens once, at write time, so reads compare byte-for-byte.
func CanonicalizeAttrs(attrs map[string]any) {
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			if !norm.NFC.IsNormalString(val) {
				attrs[k] = norm.NFC.String(val)
			}
		case []string:
			for i, s := range val {
				if !norm.NFC.IsNormalString(s) {
					val[i] = norm.NFC.String(s)
				}
			}
		}
	}
}
