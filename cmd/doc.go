// Package cmd implements the command-line interface of sysprop. It provides
// commands for running the property service and for reading and changing
// properties as a client.
//
// The package is organized into several subpackages:
//
//   - prop: Commands for property operations (get, set, del, list, wait, serial, info, perf)
//   - serve: Command for creating the property areas and starting the property service
//   - compile: Command for compiling property_contexts files into a property_info index
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Property commands talk to the property service by default. With --direct they
// map the property areas in-process instead, reading without the service and
// writing if the area files are writable.
//
// See sysprop -help for a list of all commands.
package cmd
