// Package database owns the relational store connection and its schema.
//
// Repositories for each aggregate live in subpackages (books, users,
// sessions, favorites); they receive the shared *gorm.DB and expose the
// query contracts consumed by the HTTP layer.
package database
