// Package markdown implements post ingestion: filesystem discovery,
// frontmatter extraction, optional JSON-schema validation, slug derivation,
// and Goldmark rendering of post bodies into HTML.
package markdown
