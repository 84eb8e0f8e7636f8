//go:build gcloud

package config

import "os"

// ValidatePlatform checks what the Cloud Run build needs beyond the common settings.
func ValidatePlatform() error {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" && os.Getenv("GCLOUD_PROJECT_ID") == "" {
		return ErrPlatformProjectMissing
	}
	return nil
}
