package lexer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// bom is the UTF-8 byte order mark some editors prepend to source files.
const bom = "\ufeff"

// Normalize prepares raw source text for lexing: strips a leading UTF-8
// BOM and applies Unicode NFC normalization so that lexically equivalent
// source produces the same token stream regardless of how the editor
// encoded it. Identifier casing rules (lower-case values, upper-case
// type names and tags) are checked against the composed form.
func Normalize(src string) string {
	src = strings.TrimPrefix(src, bom)
	if !norm.NFC.IsNormalString(src) {
		src = norm.NFC.String(src)
	}
	return src
}
