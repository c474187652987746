package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ProviderIDRegex matches provider-issued session, stream and connection ids.
	// Session ids carry '~' and '=' from their base64 form.
	ProviderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_~=+\-]+$`)

	// RecordIDRegex matches ids of locally stored records.
	RecordIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const maxIDLength = 256

// ValidateProviderID validates a provider-issued identifier
func ValidateProviderID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, maxIDLength)
	}
	if !ProviderIDRegex.MatchString(id) {
		return fmt.Errorf("invalid %s format", fieldName)
	}
	return nil
}

// ValidateRecordID validates an id of a locally stored record
func ValidateRecordID(id, fieldName string) error {
	if id == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, maxIDLength)
	}
	if !RecordIDRegex.MatchString(id) {
		return fmt.Errorf("invalid %s format", fieldName)
	}
	return nil
}

// ValidateRTMPURI validates an RTMP push URI such as rtmp://host/app/key
func ValidateRTMPURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("RTMP URI is required")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid RTMP URI format: %w", err)
	}
	if u.Scheme != "rtmp" && u.Scheme != "rtmps" {
		return fmt.Errorf("invalid RTMP URI scheme (must be rtmp or rtmps)")
	}
	if u.Host == "" {
		return fmt.Errorf("RTMP URI must have a host")
	}
	if strings.HasSuffix(u.Path, "/") || strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("RTMP URI must end with a stream name")
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateResolution validates a WIDTHxHEIGHT broadcast resolution
func ValidateResolution(resolution string) error {
	var w, h int
	if _, err := fmt.Sscanf(resolution, "%dx%d", &w, &h); err != nil {
		return fmt.Errorf("invalid resolution %q (expected WIDTHxHEIGHT)", resolution)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid resolution %q (dimensions must be positive)", resolution)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
