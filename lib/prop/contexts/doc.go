// Package contexts routes property names to property areas.
//
// Every property belongs to an SELinux context, and every context has its own
// area file named after it. The mapping from name prefixes to contexts comes
// from property_contexts files or from a compiled index. Three on-disk layouts
// are supported and detected once when the router is created:
//
//   - PreSplit: one legacy area file holds every property.
//   - Split: a directory of area files, routed by parsing property_contexts.
//   - Serialized: like Split, but routed by a compiled property_info index.
//
// Areas are mapped lazily on first use. A context whose file is not readable
// by the current process is remembered as inaccessible until ResetAccess.
package contexts
