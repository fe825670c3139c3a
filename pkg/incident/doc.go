// Package incident holds the per-boot incident record produced by the
// classifier and consumed by dump collection.
package incident
