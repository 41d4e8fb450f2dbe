// Package host models the runtime that starts the process: the launch
// parameters it hands to the bootstrap hook and the running application
// object, whose DidFinishLaunching is the framework's own startup routine.
package host
