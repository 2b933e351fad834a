// Package resources defines the application's core medical-content domain entities.
package resources

import (
	"errors"
	"time"
)

// Resource categories that are guaranteed candidates for offline download.
const (
	CategoryEmergency = "emergency"
	CategoryFirstAid  = "first-aid"
	CategoryDrugs     = "drugs"
)

// DefaultPriority is assigned when a resource arrives without one.
// Lower numbers are more critical; 1 is life-safety content.
const DefaultPriority = 100

// MedicalResource is the unit of cached medical content.
type MedicalResource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Priority    int       `json:"priority"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// IsEssential reports whether this resource belongs to a category that is
// part of the guaranteed offline download set.
func (r *MedicalResource) IsEssential() bool {
	return r.Category == CategoryEmergency || r.Category == CategoryFirstAid
}

// Normalize fills defaults on a resource received from the upstream API.
func (r *MedicalResource) Normalize() {
	if r.Priority <= 0 {
		r.Priority = DefaultPriority
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = time.Now().UTC()
	}
}

var (
	// ErrStorageUnavailable indicates the local database could not be
	// opened. Reads degrade to empty results; writes surface this error.
	ErrStorageUnavailable = errors.New("offline storage unavailable")

	// ErrDownloadFailed indicates a network fetch of the essential
	// resource set failed. No partial mutation of the store occurs.
	ErrDownloadFailed = errors.New("essential resource download failed")

	// ErrCacheWriteFailed indicates a response could not be admitted
	// into a cache generation. Logged and skipped; never blocks the
	// live response.
	ErrCacheWriteFailed = errors.New("cache write failed")
)

// StorageStats reports offline storage usage to the application UI.
type StorageStats struct {
	ResourceCount int       `json:"resourceCount"`
	ApproxBytes   int64     `json:"approxBytes"`
	LastUpdated   time.Time `json:"lastUpdated"`
}
