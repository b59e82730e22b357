package config

import "fmt"

// Validate reports the first required setting that is missing.
func (c Config) Validate() error {
	if err := NonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := NonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET"); err != nil {
		return err
	}
	if err := NonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET"); err != nil {
		return err
	}
	if c.Storage.Disk == "s3" {
		if err := NonEmpty(c.Storage.S3Bucket, "S3_BUCKET"); err != nil {
			return err
		}
	}
	return nil
}

func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func NonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}
