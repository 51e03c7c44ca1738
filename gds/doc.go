// Package gds reads and writes the GDSII stream format.
//
// A stream is a flat sequence of records. Every record starts with a 4-byte
// big-endian header: the total record length including the header (uint16),
// the record type (uint8) and the data type (uint8). The writer emits exactly
// the subset of records needed for hierarchical layouts of rectangles and
// translated references:
//
//	HEADER BGNLIB LIBNAME UNITS
//	  { BGNSTR STRNAME
//	      { BOUNDARY LAYER DATATYPE XY ENDEL | SREF SNAME XY ENDEL }
//	    ENDSTR }
//	ENDLIB
//
// Structures are written children first, so a reader never meets a reference
// to a structure it has not seen yet. Timestamps are fixed by default, so the
// same document always encodes to the same bytes.
package gds
