// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type.
//
// Registry dispatches an upload to the highest-priority normaliser for its
// resolved MIME type; Default wires the built-in formats.
package normalisers
