// Package registry provides the central "glue" for the slot system.
//
// The Registry is responsible for storing mappings between the string names
// scripts dispatch against (e.g., "log.info") and the compiled Go factories
// that produce handler instances for them. Feature modules register their
// slots during application startup; the registry is then frozen and stays
// read-only for the remainder of the process lifetime, which makes it safe
// for unsynchronized concurrent dispatch from request-handling goroutines.
package registry
