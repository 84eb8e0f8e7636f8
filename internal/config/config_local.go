//go:build !gcloud

package config

func ValidatePlatform() error {
	return nil
}
