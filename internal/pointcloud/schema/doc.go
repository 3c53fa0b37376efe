// Package schema resolves the per-field layout of packed point records.
//
// A point source describes its records as an ordered list of dimensions
// (name, interpretation name, byte width). Resolve turns that list into a
// RecordSchema: byte offsets are assigned in declaration order and the
// record stride is the sum of all widths. The six fields the decoder cares
// about (X, Y, Z, Red, Green, Blue) are also exposed through a fixed-size
// Lookup so per-record decoding never touches a map or a string.
//
// Interpretation names are only inspected here, once per source. Everything
// downstream dispatches on TypeID.
package schema
