// Package area implements a single property area: a fixed size, memory mapped
// region shared by every process on the machine that holds a trie of
// properties.
//
// An area consists of a 128 byte header followed by a bump allocated arena.
// Nothing inside the arena is ever freed. The arena holds trie nodes (one per
// dotted name segment, siblings kept as a binary search tree) and property
// infos (serial word, inline value and name). Values are protected by a
// seqlock built from the serial word and futex waits, so readers never take a
// lock and never observe a torn value.
//
// The binary layout matches the layout used by Android's bionic libc, so an
// area created here can be read by bionic and vice versa.
//
// Thread-safety: readers may run concurrently with each other and with one
// writer. Writers must be serialised by the caller (see lstore and lockmgr).
package area
