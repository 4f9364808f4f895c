package bundlecrypt

import (
	"fmt"
	"strings"
)

// Input validation helpers shared by the decoding and download paths.

// ValidateDescriptor checks the fields the core depends on before a bundle
// is fetched or decoded.
func ValidateDescriptor(desc *BundleDescriptor) error {
	if desc == nil {
		return fmt.Errorf("descriptor cannot be nil")
	}
	if desc.RelativePath == "" {
		return fmt.Errorf("descriptor missing relative path")
	}
	if strings.Contains(desc.RelativePath, "..") {
		return fmt.Errorf("descriptor relative path %q escapes the output root", desc.RelativePath)
	}
	if desc.FileSize < 0 {
		return fmt.Errorf("descriptor %q: negative file size", desc.RelativePath)
	}
	if desc.CompressionMode == CompressionContainer && desc.FileSize < ContainerOverhead {
		return fmt.Errorf("descriptor %q: container bundle smaller than framing", desc.RelativePath)
	}
	return nil
}

// ValidateDescriptors checks a whole run's input set, including path
// uniqueness across the batch.
func ValidateDescriptors(descs []BundleDescriptor) error {
	seen := make(map[string]struct{}, len(descs))
	for i := range descs {
		if err := ValidateDescriptor(&descs[i]); err != nil {
			return err
		}
		if _, dup := seen[descs[i].RelativePath]; dup {
			return fmt.Errorf("duplicate relative path %q", descs[i].RelativePath)
		}
		seen[descs[i].RelativePath] = struct{}{}
	}
	return nil
}
