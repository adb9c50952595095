// Package db embeds the database schema.
package db

import _ "embed"

// Schema contains the DDL for all application tables. Statements are
// idempotent so it can run on every startup.
//
//go:embed migrations/001_schema.sql
var Schema string
