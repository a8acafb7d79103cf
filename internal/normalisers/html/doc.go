// Package html provides a Normaliser implementation for HTML documents.
// Markup is sanitised with bluemonday and converted to markdown, so headings
// stay on their own lines for chapter detection before the markdown syntax
// is cleaned away.
package html
