// Package scenes extracts ordered scene records from a prompt document.
//
// A markdown document is scanned for level-2 headings; each heading opens a
// scene whose body runs to the next heading. Documents without headings fall
// back to blank-line paragraph pairs. TOML documents list scenes explicitly as
// [[scene]] tables. Extraction never fails on malformed input; it yields
// whatever records it can find, possibly none.
package scenes
