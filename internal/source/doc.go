// Package source reads delimited text files into header-keyed records.
//
// The whole file is read into memory. Each record keeps the 1-based line on
// which it starts (the header is line 1), so quoted fields spanning several
// lines do not shift the numbering of later records.
//
// Supported encodings are utf-8 (default, BOM stripped), utf-16 (BOM
// detected, little-endian otherwise), utf-16le, utf-16be, latin1/iso-8859-1
// and windows-1252. Any other WHATWG encoding label is resolved through
// golang.org/x/text/encoding/htmlindex.
package source
