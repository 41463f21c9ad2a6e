package contexts

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultContextFiles returns the property_contexts files of the system
// rooted at root, in the order they are parsed. The platform file comes
// first and is required; the vendor file is optional and falls back to the
// older nonplat name. Systems without split policy use /property_contexts.
func DefaultContextFiles(root string) []string {
	join := func(p string) string { return filepath.Join(root, p) }
	for _, dir := range []string{"/system/etc/selinux", "/"} {
		plat := join(filepath.Join(dir, "plat_property_contexts"))
		if !readable(plat) {
			continue
		}
		vendorDir := "/vendor/etc/selinux"
		if dir == "/" {
			vendorDir = "/"
		}
		vendor := join(filepath.Join(vendorDir, "vendor_property_contexts"))
		if !readable(vendor) {
			vendor = join(filepath.Join(vendorDir, "nonplat_property_contexts"))
		}
		return []string{plat, vendor}
	}
	return []string{join("/property_contexts")}
}

func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
